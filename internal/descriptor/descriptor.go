// Package descriptor implements the composite CRC record the device
// and cloud use for describe-cache coherence: AppStateDescriptor and
// its masked equality.
package descriptor

// Mask selects which fields of an AppStateDescriptor participate in a
// masked equality comparison.
type Mask uint8

const (
	SystemDescribeCRC Mask = 1 << iota
	AppDescribeCRC
	SubscriptionsCRC
	ProtocolFlags

	All = SystemDescribeCRC | AppDescribeCRC | SubscriptionsCRC | ProtocolFlags
)

// AppStateDescriptor is a record of four optional CRC/flag fields.
// Each field carries its own presence bit rather than relying on a
// sentinel zero value, since 0 is a legitimate CRC.
type AppStateDescriptor struct {
	systemCRC     uint32
	hasSystemCRC  bool
	appCRC        uint32
	hasAppCRC     bool
	subsCRC       uint32
	hasSubsCRC    bool
	flags         uint32
	hasFlags      bool
}

// New returns an empty descriptor with no fields present.
func New() AppStateDescriptor {
	return AppStateDescriptor{}
}

func (d AppStateDescriptor) WithSystemCRC(v uint32) AppStateDescriptor {
	d.systemCRC, d.hasSystemCRC = v, true
	return d
}

func (d AppStateDescriptor) WithAppCRC(v uint32) AppStateDescriptor {
	d.appCRC, d.hasAppCRC = v, true
	return d
}

func (d AppStateDescriptor) WithSubscriptionsCRC(v uint32) AppStateDescriptor {
	d.subsCRC, d.hasSubsCRC = v, true
	return d
}

func (d AppStateDescriptor) WithProtocolFlags(v uint32) AppStateDescriptor {
	d.flags, d.hasFlags = v, true
	return d
}

func (d AppStateDescriptor) SystemCRC() (uint32, bool)      { return d.systemCRC, d.hasSystemCRC }
func (d AppStateDescriptor) AppCRC() (uint32, bool)         { return d.appCRC, d.hasAppCRC }
func (d AppStateDescriptor) SubscriptionsCRC() (uint32, bool) { return d.subsCRC, d.hasSubsCRC }
func (d AppStateDescriptor) ProtocolFlagsValue() (uint32, bool) { return d.flags, d.hasFlags }

// Equals returns true iff every field selected by mask is present and
// numerically equal in both descriptors. A field absent on either
// side forces inequality for that bit of the mask — the device only
// elides a describe when it can prove the cloud already has the same
// document version.
func (d AppStateDescriptor) Equals(other AppStateDescriptor, mask Mask) bool {
	if mask&SystemDescribeCRC != 0 {
		if !fieldEqual(d.systemCRC, d.hasSystemCRC, other.systemCRC, other.hasSystemCRC) {
			return false
		}
	}
	if mask&AppDescribeCRC != 0 {
		if !fieldEqual(d.appCRC, d.hasAppCRC, other.appCRC, other.hasAppCRC) {
			return false
		}
	}
	if mask&SubscriptionsCRC != 0 {
		if !fieldEqual(d.subsCRC, d.hasSubsCRC, other.subsCRC, other.hasSubsCRC) {
			return false
		}
	}
	if mask&ProtocolFlags != 0 {
		if !fieldEqual(d.flags, d.hasFlags, other.flags, other.hasFlags) {
			return false
		}
	}
	return true
}

func fieldEqual(a uint32, aOk bool, b uint32, bOk bool) bool {
	if !aOk || !bOk {
		return false
	}
	return a == b
}
