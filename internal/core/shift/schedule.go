package shift

import (
	"encoding/json"
	"strings"
)

// Mode is the operating mode of a device schedule
type Mode string

const (
	// ModeNormal runs the regular morning/afternoon/night rotation
	ModeNormal Mode = "NORMAL"
	// ModeOffice routes office hours to the intershift contact and everything else to n2
	ModeOffice Mode = "OFFICE"
	// ModeHoliday routes everything to n2
	ModeHoliday Mode = "HOLIDAY"
)

// None is the sentinel the console stores for an unassigned slot
const None = "__NONE__"

// Schedule is the parsed read-only view of a device config document
// empty ids mean unassigned
type Schedule struct {
	Mode        Mode
	N2          string
	Morning     string
	Afternoon   string
	Night       string
	InterMonThu string
	InterFri    string
}

// Override is the force-next-turn block written by the console
type Override struct {
	ForceNextTurn  bool   `json:"forceNextTurn"`
	ForceRequestID string `json:"forceRequestId,omitempty"`
	UITag          string `json:"uiTag,omitempty"`
	UIReason       string `json:"uiReason,omitempty"`
	RequestedBy    string `json:"requestedBy,omitempty"`
	RequestedAt    *int64 `json:"requestedAt,omitempty"`
	ConsumedAt     *int64 `json:"consumedAt,omitempty"`
}

// Slot is one shift assignment; it decodes both {"contactId":"x"} and a bare "x"
type Slot struct {
	ContactID string `json:"contactId"`
}

// UnmarshalJSON accepts the object form and the flat string form
func (s *Slot) UnmarshalJSON(b []byte) error {
	var flat string
	if err := json.Unmarshal(b, &flat); err == nil {
		s.ContactID = flat
		return nil
	}
	type alias Slot
	var obj alias
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}
	*s = Slot(obj)
	return nil
}

// Shifts groups the five assignable slots
type Shifts struct {
	Morning       *Slot `json:"morning,omitempty"`
	Afternoon     *Slot `json:"afternoon,omitempty"`
	Night         *Slot `json:"night,omitempty"`
	IntershiftLJ  *Slot `json:"intershiftLJ,omitempty"`
	IntershiftFri *Slot `json:"intershiftFri,omitempty"`
}

// Document is the wire shape of a device config as stored by the console
type Document struct {
	Mode         string    `json:"mode,omitempty"`
	OfficeMode   *bool     `json:"officeMode,omitempty"`
	ForceHoliday *bool     `json:"forceHoliday,omitempty"`
	N1Active     *bool     `json:"n1Active,omitempty"`
	N2GuardID    string    `json:"n2GuardId,omitempty"`
	Shifts       Shifts    `json:"shifts"`
	Override     *Override `json:"override,omitempty"`
}

// ParseDocument decodes a raw config document
func ParseDocument(raw []byte) (Document, error) {
	var d Document
	if len(raw) == 0 {
		return d, nil
	}
	err := json.Unmarshal(raw, &d)
	return d, err
}

// Schedule derives the engine input from the document
func (d Document) Schedule() Schedule {
	return Schedule{
		Mode:        d.mode(),
		N2:          NormalizeID(d.N2GuardID),
		Morning:     slotID(d.Shifts.Morning),
		Afternoon:   slotID(d.Shifts.Afternoon),
		Night:       slotID(d.Shifts.Night),
		InterMonThu: slotID(d.Shifts.IntershiftLJ),
		InterFri:    slotID(d.Shifts.IntershiftFri),
	}
}

// Forced reports whether a force-next-turn override is pending
func (d Document) Forced() bool { return d.Override != nil && d.Override.ForceNextTurn }

// mode reads the explicit mode first, then the legacy flags
func (d Document) mode() Mode {
	switch strings.ToUpper(strings.TrimSpace(d.Mode)) {
	case "NORMAL":
		return ModeNormal
	case "OFFICE", "OFICINA":
		return ModeOffice
	case "HOLIDAY", "FESTIVO":
		return ModeHoliday
	}
	switch {
	case d.ForceHoliday != nil && *d.ForceHoliday:
		return ModeHoliday
	case d.OfficeMode != nil && *d.OfficeMode:
		return ModeOffice
	default:
		return ModeNormal
	}
}

func slotID(s *Slot) string {
	if s == nil {
		return ""
	}
	return NormalizeID(s.ContactID)
}

// NormalizeID trims a contact id and maps the unassigned sentinels to ""
func NormalizeID(id string) string {
	id = strings.TrimSpace(id)
	if id == None || strings.EqualFold(id, "null") {
		return ""
	}
	return id
}

// ReadSchedule parses a raw config document straight into engine input
func ReadSchedule(raw []byte) (Schedule, error) {
	d, err := ParseDocument(raw)
	if err != nil {
		return Schedule{}, err
	}
	return d.Schedule(), nil
}
