package catalog

// CipherMode identifies a block cipher mode of operation.
type CipherMode int

const (
	CBC CipherMode = iota + 1
	OFB
	CFB
	CTR
	GCM
	EAX
)

var modeTable = map[CipherMode]string{
	CBC: "CBC",
	OFB: "OFB",
	CFB: "CFB",
	CTR: "CTR",
	GCM: "GCM",
	EAX: "EAX",
}

func CipherModes() []CipherMode {
	return []CipherMode{CBC, OFB, CFB, CTR, GCM, EAX}
}

func CipherModeFromID(id int) (CipherMode, error) {
	return FromID(CipherModes(), id)
}

func (m CipherMode) ID() int { return int(m) }

func (m CipherMode) String() string {
	if name, ok := modeTable[m]; ok {
		return name
	}
	return "CipherMode(unknown)"
}

// IsStream reports whether the mode turns the block cipher into a keystream
// and needs no padding.
func (m CipherMode) IsStream() bool {
	return m == OFB || m == CFB || m == CTR
}

// IsAEAD reports whether the mode authenticates its ciphertext.
func (m CipherMode) IsAEAD() bool {
	return m == GCM || m == EAX
}
