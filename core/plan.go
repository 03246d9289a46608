package core

import "github.com/google/uuid"

// PlanID is the globally unique 128-bit identifier of one stream plan. It is
// shared by every node participating in the same logical bulk transfer and
// never changes once assigned.
type PlanID uuid.UUID

// NilPlanID is the zero PlanID.
var NilPlanID = PlanID(uuid.Nil)

// NewPlanID generates a random PlanID.
func NewPlanID() PlanID {
	return PlanID(uuid.New())
}

// ParsePlanID parses the canonical UUID string form of a plan identifier.
func ParsePlanID(s string) (PlanID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return NilPlanID, err
	}
	return PlanID(id), nil
}

// String returns the canonical UUID string form.
func (id PlanID) String() string {
	return uuid.UUID(id).String()
}

// MarshalText implements encoding.TextMarshaler.
func (id PlanID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *PlanID) UnmarshalText(b []byte) error {
	parsed, err := ParsePlanID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
