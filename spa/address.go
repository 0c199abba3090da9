package spa

import (
	"cmp"
	"fmt"
	"strconv"
	"strings"
)

// A LogicalAddress names an endpoint independently of where it physically
// runs. It is a value type; two addresses are the same endpoint exactly when
// they compare equal.
type LogicalAddress struct {
	Subnet uint16
	Node   uint16
}

var (
	// NullAddress is the placeholder used before a component is registered.
	NullAddress = LogicalAddress{}

	// DefaultManagerAddress is the well-known address of the local subnet
	// manager.
	DefaultManagerAddress = LogicalAddress{Subnet: 1, Node: 0}
)

// NewLogicalAddress creates an address from its subnet and node ids.
func NewLogicalAddress(subnet, node uint16) LogicalAddress {
	return LogicalAddress{Subnet: subnet, Node: node}
}

// IsNull reports whether the address is the unset address (0,0).
func (a LogicalAddress) IsNull() bool {
	return a == NullAddress
}

// Compare orders addresses by subnet first and node second. It returns -1, 0
// or +1.
func (a LogicalAddress) Compare(b LogicalAddress) int {
	if c := cmp.Compare(a.Subnet, b.Subnet); c != 0 {
		return c
	}

	return cmp.Compare(a.Node, b.Node)
}

// Less reports whether a orders before b.
func (a LogicalAddress) Less(b LogicalAddress) bool {
	return a.Compare(b) < 0
}

// String renders the address as "subnet.node".
func (a LogicalAddress) String() string {
	return fmt.Sprintf("%d.%d", a.Subnet, a.Node)
}

// ParseLogicalAddress parses the "subnet.node" form produced by String.
func ParseLogicalAddress(s string) (LogicalAddress, error) {
	subnetStr, nodeStr, found := strings.Cut(strings.TrimSpace(s), ".")
	if !found {
		return NullAddress, fmt.Errorf("invalid logical address %q", s)
	}

	subnet, err := strconv.ParseUint(subnetStr, 10, 16)
	if err != nil {
		return NullAddress, fmt.Errorf("invalid subnet in %q: %w", s, err)
	}

	node, err := strconv.ParseUint(nodeStr, 10, 16)
	if err != nil {
		return NullAddress, fmt.Errorf("invalid node in %q: %w", s, err)
	}

	return NewLogicalAddress(uint16(subnet), uint16(node)), nil
}
