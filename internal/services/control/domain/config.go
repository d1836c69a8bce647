package domain

import (
	"callrota/internal/core/shift"
	perr "callrota/internal/platform/errors"
)

// ConfigInput is the operator-editable view of a device schedule
// one intershift contact covers both the Mon-Thu and the Friday slot
type ConfigInput struct {
	Mode       shift.Mode
	N2         string
	Morning    string
	Intershift string
	Afternoon  string
	Night      string
}

// InputFrom reads a stored document back into the editable view
func InputFrom(d shift.Document) ConfigInput {
	s := d.Schedule()
	inter := s.InterMonThu
	if inter == "" {
		inter = s.InterFri
	}
	return ConfigInput{
		Mode:       s.Mode,
		N2:         s.N2,
		Morning:    s.Morning,
		Intershift: inter,
		Afternoon:  s.Afternoon,
		Night:      s.Night,
	}
}

// Document validates the input and builds the stored form
// Office mode clears the rotating slots, holiday mode clears everything but n2
func (in ConfigInput) Document() (shift.Document, error) {
	n2 := shift.NormalizeID(in.N2)
	if n2 == "" {
		return shift.Document{}, perr.WithField(
			perr.New(perr.ErrorCodeValidation, "Selecciona una Guardia N2 obligatoria antes de guardar."), "n2GuardId")
	}

	mode := in.Mode
	switch mode {
	case shift.ModeNormal, shift.ModeOffice, shift.ModeHoliday:
	case "":
		mode = shift.ModeNormal
	default:
		return shift.Document{}, perr.WithField(perr.Newf(perr.ErrorCodeValidation, "unknown mode %q", mode), "mode")
	}

	morning, inter, afternoon, night := in.Morning, in.Intershift, in.Afternoon, in.Night
	switch mode {
	case shift.ModeOffice:
		morning, afternoon, night = "", "", ""
	case shift.ModeHoliday:
		morning, inter, afternoon, night = "", "", "", ""
	}

	office, holiday, n1 := mode == shift.ModeOffice, mode == shift.ModeHoliday, mode == shift.ModeNormal
	return shift.Document{
		Mode:         string(mode),
		OfficeMode:   &office,
		ForceHoliday: &holiday,
		N1Active:     &n1,
		N2GuardID:    n2,
		Shifts: shift.Shifts{
			Morning:       slot(morning),
			Afternoon:     slot(afternoon),
			Night:         slot(night),
			IntershiftLJ:  slot(inter),
			IntershiftFri: slot(inter),
		},
	}, nil
}

func slot(id string) *shift.Slot { return &shift.Slot{ContactID: shift.NormalizeID(id)} }
