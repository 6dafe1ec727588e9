package catalog

// AsymKeyType identifies an asymmetric key family and size.
type AsymKeyType int

const (
	RSA2048 AsymKeyType = iota + 1
	RSA3072
	RSA4096
	P256
	P384
	P521
	X25519
)

type asymKeyInfo struct {
	name  string
	bits  int
	curve string
}

var asymKeyTable = map[AsymKeyType]asymKeyInfo{
	RSA2048: {name: "RSA2048", bits: 2048},
	RSA3072: {name: "RSA3072", bits: 3072},
	RSA4096: {name: "RSA4096", bits: 4096},
	P256:    {name: "P256", bits: 256, curve: "P-256"},
	P384:    {name: "P384", bits: 384, curve: "P-384"},
	P521:    {name: "P521", bits: 521, curve: "P-521"},
	X25519:  {name: "X25519", bits: 255, curve: "X25519"},
}

func AsymKeyTypes() []AsymKeyType {
	return []AsymKeyType{RSA2048, RSA3072, RSA4096, P256, P384, P521, X25519}
}

// EllipticKeyTypes returns the key types usable for key agreement.
func EllipticKeyTypes() []AsymKeyType {
	return []AsymKeyType{P256, P384, P521, X25519}
}

func AsymKeyTypeFromID(id int) (AsymKeyType, error) {
	return FromID(AsymKeyTypes(), id)
}

func (a AsymKeyType) ID() int { return int(a) }

func (a AsymKeyType) String() string {
	if info, ok := asymKeyTable[a]; ok {
		return info.name
	}
	return "AsymKeyType(unknown)"
}

func (a AsymKeyType) Valid() bool {
	_, ok := asymKeyTable[a]
	return ok
}

func (a AsymKeyType) IsElliptic() bool {
	return asymKeyTable[a].curve != ""
}

// Bits is the RSA modulus size or the curve size.
func (a AsymKeyType) Bits() int {
	return asymKeyTable[a].bits
}

// Curve is the curve name, empty for RSA types.
func (a AsymKeyType) Curve() string {
	return asymKeyTable[a].curve
}
