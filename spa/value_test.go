package spa

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Value", func() {
	It("should keep the kind of the wrapped scalar", func() {
		Expect(NewValue(true).Kind).To(Equal(KindBool))
		Expect(NewValue(int8(-1)).Kind).To(Equal(KindInt8))
		Expect(NewValue(uint16(7)).Kind).To(Equal(KindUint16))
		Expect(NewValue(float32(1.5)).Kind).To(Equal(KindFloat32))
		Expect(NewValue(2.5).Kind).To(Equal(KindFloat64))
	})

	It("should unwrap into the same type", func() {
		v, ok := ValueAs[int32](NewValue(int32(-42)))
		Expect(ok).To(BeTrue())
		Expect(v).To(Equal(int32(-42)))

		f, ok := ValueAs[float32](NewValue(float32(97.25)))
		Expect(ok).To(BeTrue())
		Expect(f).To(Equal(float32(97.25)))

		b, ok := ValueAs[bool](NewValue(true))
		Expect(ok).To(BeTrue())
		Expect(b).To(BeTrue())
	})

	It("should refuse to unwrap into another type", func() {
		_, ok := ValueAs[int64](NewValue(int32(1)))
		Expect(ok).To(BeFalse())
	})

	It("should widen any kind to float64", func() {
		Expect(NewValue(int16(-3)).Float64()).To(Equal(-3.0))
		Expect(NewValue(uint64(9)).Float64()).To(Equal(9.0))
		Expect(NewValue(float32(0.5)).Float64()).To(Equal(0.5))
		Expect(NewValue(true).Float64()).To(Equal(1.0))
		Expect(Value{}.Float64()).To(Equal(0.0))
	})

	It("should print itself", func() {
		Expect(NewValue(int32(3)).String()).To(Equal("int32(3)"))
		Expect(NewValue(false).String()).To(Equal("false"))
		Expect(Value{}.String()).To(Equal("invalid"))
	})
})

var _ = Describe("DialogIDGenerator", func() {
	It("should start at one and never return zero", func() {
		g := NewDialogIDGenerator()
		Expect(g.Generate()).To(Equal(uint16(1)))

		seenZero := false
		for i := 0; i < 70000; i++ {
			if g.Generate() == 0 {
				seenZero = true
			}
		}

		Expect(seenZero).To(BeFalse())
	})
})
