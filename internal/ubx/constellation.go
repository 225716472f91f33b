package ubx

// Constellation identifies the GNSS system family a satellite belongs to.
type Constellation int

const (
	ConstellationUnknown Constellation = iota
	ConstellationGPS
	ConstellationSBAS
	ConstellationGLONASS
	ConstellationGalileo
	ConstellationBeiDou
	ConstellationQZSS
)

func (c Constellation) String() string {
	switch c {
	case ConstellationGPS:
		return "GPS"
	case ConstellationSBAS:
		return "SBAS"
	case ConstellationGLONASS:
		return "GLONASS"
	case ConstellationGalileo:
		return "Galileo"
	case ConstellationBeiDou:
		return "BeiDou"
	case ConstellationQZSS:
		return "QZSS"
	default:
		return "Unknown"
	}
}

// Classify maps a satellite identifier to its constellation using the
// u-blox numbering convention. The ranges are approximate and
// receiver-dependent; identifiers outside every known range map to Unknown.
func Classify(svid byte) Constellation {
	switch {
	case svid >= 1 && svid <= 32:
		return ConstellationGPS
	case svid >= 33 && svid <= 64:
		return ConstellationBeiDou
	case svid >= 65 && svid <= 96:
		return ConstellationGLONASS
	case svid >= 120 && svid <= 158:
		return ConstellationSBAS
	case svid >= 159 && svid <= 163:
		return ConstellationBeiDou
	case svid >= 183 && svid <= 192:
		return ConstellationSBAS
	case svid >= 193 && svid <= 197:
		return ConstellationQZSS
	case svid >= 211 && svid <= 246:
		return ConstellationGalileo
	default:
		return ConstellationUnknown
	}
}
