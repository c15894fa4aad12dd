package value

import "time"

// Datetime values (spec §3.1) are implemented over the standard library
// time package. No repository in the retrieval pack ships a timezone
// database or datetime-arithmetic helper library (spec §1 names these as
// external collaborators but none are present among the retrieved
// examples), so falling back to time/time.Location here is the
// documented exception recorded in DESIGN.md.

type LocalDateVal struct {
	rc
	Y, M, D int
}

func (d *LocalDateVal) children() []Value { return nil }

func NewLocalDate(y, m, d int) Value {
	return newValue(LocalDate, &LocalDateVal{Y: y, M: m, D: d})
}

type LocalTimeVal struct {
	rc
	H, Min, S, Nsec int
}

func (t *LocalTimeVal) children() []Value { return nil }

func NewLocalTime(h, m, s, ns int) Value {
	return newValue(LocalTime, &LocalTimeVal{H: h, Min: m, S: s, Nsec: ns})
}

type LocalDateTimeVal struct {
	rc
	T time.Time
}

func (t *LocalDateTimeVal) children() []Value { return nil }

func NewLocalDateTime(t time.Time) Value {
	return newValue(LocalDateTime, &LocalDateTimeVal{T: t})
}

type InstantVal struct {
	rc
	T time.Time
}

func (t *InstantVal) children() []Value { return nil }

func NewInstant(t time.Time) Value {
	return newValue(Instant, &InstantVal{T: t})
}

// DateVal is the calendar-agnostic "Date" variant distinct from
// LocalDate — kept separate per spec §3.1's enumeration, used by
// natives that need a tagged epoch-day representation without a
// civil-calendar breakdown.
type DateVal struct {
	rc
	EpochDay int64
}

func (d *DateVal) children() []Value { return nil }

func NewDate(epochDay int64) Value {
	return newValue(Date, &DateVal{EpochDay: epochDay})
}

type ZoneVal struct {
	rc
	Loc *time.Location
}

func (z *ZoneVal) children() []Value { return nil }

func NewZone(loc *time.Location) Value {
	return newValue(Zone, &ZoneVal{Loc: loc})
}

type DurationVal struct {
	rc
	D time.Duration
}

func (d *DurationVal) children() []Value { return nil }

func NewDuration(d time.Duration) Value {
	return newValue(Duration, &DurationVal{D: d})
}

type PeriodVal struct {
	rc
	Years, Months, Days int
}

func (p *PeriodVal) children() []Value { return nil }

func NewPeriod(y, m, d int) Value {
	return newValue(Period, &PeriodVal{Years: y, Months: m, Days: d})
}
