package dlt

// Features records which optional fields of a line are populated. Absence of a
// bit means the field is absent, even if its value is zero.
type Features uint16

const (
	FeatureEcuID Features = 1 << iota
	FeatureAppID
	FeatureCtxID
	FeatureTimeStamp
	FeatureDeviceTime
	FeatureMessageType
	FeatureSessionID
	FeatureVerbose
	FeatureBigEndian
)

func (f Features) Has(bits Features) bool {
	return f&bits == bits
}

func (f *Features) Set(bits Features, on bool) {
	if on {
		*f |= bits
		return
	}
	*f &^= bits
}
