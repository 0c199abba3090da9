package spa

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func resetIDGenerator() {
	idGeneratorMutex.Lock()
	defer idGeneratorMutex.Unlock()

	idGenerator = nil
	idGeneratorInstantiated = false
}

var _ = Describe("IDGenerator", func() {
	BeforeEach(resetIDGenerator)
	AfterEach(resetIDGenerator)

	It("should count up when sequential", func() {
		UseSequentialIDGenerator()

		g := GetIDGenerator()
		Expect(g.Generate()).To(Equal("1"))
		Expect(g.Generate()).To(Equal("2"))
		Expect(GetIDGenerator().Generate()).To(Equal("3"))
	})

	It("should default to unique ids", func() {
		g := GetIDGenerator()

		a, b := g.Generate(), g.Generate()
		Expect(a).NotTo(Equal(b))
		Expect(a).To(HaveLen(20))
	})

	It("should refuse to switch after use", func() {
		GetIDGenerator()

		Expect(UseSequentialIDGenerator).To(Panic())
	})
})
