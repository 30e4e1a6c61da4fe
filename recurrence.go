// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package aumlib

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// Frequency is the recurrence unit of a maintenance window.
type Frequency string

const (
	FrequencyDay   Frequency = "Day"
	FrequencyWeek  Frequency = "Week"
	FrequencyMonth Frequency = "Month"
)

// Ordinal selects the week of the month for a monthly recurrence.
type Ordinal string

const (
	OrdinalFirst  Ordinal = "First"
	OrdinalSecond Ordinal = "Second"
	OrdinalThird  Ordinal = "Third"
	OrdinalFourth Ordinal = "Fourth"
	OrdinalLast   Ordinal = "Last"
)

var ordinals = []Ordinal{OrdinalFirst, OrdinalSecond, OrdinalThird, OrdinalFourth, OrdinalLast}

// ErrInvalidRecurrence is wrapped by all recurrence parse errors.
var ErrInvalidRecurrence = errors.New("invalid recurrence")

// Recurrence is the structured form of the recurrence grammar:
//
//	[n]Day
//	[n]Week <weekday>[,<weekday>...]
//	[n]Month <First|Second|Third|Fourth|Last> <weekday>
//
// The interval n defaults to 1.
type Recurrence struct {
	Interval  int
	Frequency Frequency
	Weekdays  []time.Weekday // Week: one or more, Month: exactly one
	Ordinal   Ordinal        // Month only
}

// ParseRecurrence parses the recurrence grammar. It also accepts the Azure recurEvery form,
// which always carries the interval prefix.
func ParseRecurrence(s string) (Recurrence, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return Recurrence{}, fmt.Errorf("%w: empty pattern", ErrInvalidRecurrence)
	}

	interval, unit, err := splitInterval(fields[0])
	if err != nil {
		return Recurrence{}, err
	}

	r := Recurrence{Interval: interval}

	switch {
	case strings.EqualFold(unit, string(FrequencyDay)):
		if len(fields) != 1 {
			return Recurrence{}, fmt.Errorf("%w: `%s`: Day takes no arguments", ErrInvalidRecurrence, s)
		}

		r.Frequency = FrequencyDay
	case strings.EqualFold(unit, string(FrequencyWeek)):
		if len(fields) < 2 {
			return Recurrence{}, fmt.Errorf("%w: `%s`: Week requires a list of weekdays", ErrInvalidRecurrence, s)
		}

		r.Frequency = FrequencyWeek

		for _, name := range strings.Split(strings.Join(fields[1:], ""), ",") {
			wd, err := parseWeekday(name)
			if err != nil {
				return Recurrence{}, err
			}

			if slices.Contains(r.Weekdays, wd) {
				return Recurrence{}, fmt.Errorf("%w: `%s`: duplicate weekday %s", ErrInvalidRecurrence, s, wd)
			}

			r.Weekdays = append(r.Weekdays, wd)
		}
	case strings.EqualFold(unit, string(FrequencyMonth)):
		if len(fields) != 3 {
			return Recurrence{}, fmt.Errorf("%w: `%s`: Month requires an ordinal and a weekday", ErrInvalidRecurrence, s)
		}

		r.Frequency = FrequencyMonth

		ord, err := parseOrdinal(fields[1])
		if err != nil {
			return Recurrence{}, err
		}

		wd, err := parseWeekday(fields[2])
		if err != nil {
			return Recurrence{}, err
		}

		r.Ordinal = ord
		r.Weekdays = []time.Weekday{wd}
	default:
		return Recurrence{}, fmt.Errorf("%w: `%s`: unknown unit `%s`, expected Day, Week or Month", ErrInvalidRecurrence, s, unit)
	}

	return r, nil
}

// String returns the canonical grammar form. An interval of 1 is omitted.
func (r Recurrence) String() string {
	prefix := ""
	if r.Interval > 1 {
		prefix = strconv.Itoa(r.Interval)
	}

	return prefix + r.body()
}

// RecurEvery returns the Azure maintenance window recurEvery value, e.g. `1Week Saturday,Sunday`.
func (r Recurrence) RecurEvery() string {
	interval := r.Interval
	if interval < 1 {
		interval = 1
	}

	return strconv.Itoa(interval) + r.body()
}

// Equal reports whether two recurrences are identical.
func (r Recurrence) Equal(o Recurrence) bool {
	return r.Interval == o.Interval &&
		r.Frequency == o.Frequency &&
		r.Ordinal == o.Ordinal &&
		slices.Equal(r.Weekdays, o.Weekdays)
}

func (r Recurrence) body() string {
	switch r.Frequency {
	case FrequencyWeek:
		names := make([]string, len(r.Weekdays))
		for i, wd := range r.Weekdays {
			names[i] = wd.String()
		}

		return string(FrequencyWeek) + " " + strings.Join(names, ",")
	case FrequencyMonth:
		wd := time.Sunday
		if len(r.Weekdays) > 0 {
			wd = r.Weekdays[0]
		}

		return fmt.Sprintf("%s %s %s", FrequencyMonth, r.Ordinal, wd)
	default:
		return string(FrequencyDay)
	}
}

func splitInterval(token string) (int, string, error) {
	i := strings.IndexFunc(token, func(r rune) bool { return !unicode.IsDigit(r) })
	if i < 0 {
		return 0, "", fmt.Errorf("%w: `%s`: missing unit", ErrInvalidRecurrence, token)
	}

	if i == 0 {
		return 1, token, nil
	}

	n, err := strconv.Atoi(token[:i])
	if err != nil || n < 1 {
		return 0, "", fmt.Errorf("%w: `%s`: interval must be a positive integer", ErrInvalidRecurrence, token)
	}

	return n, token[i:], nil
}

func parseWeekday(s string) (time.Weekday, error) {
	s = strings.TrimSpace(s)
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		if strings.EqualFold(s, wd.String()) {
			return wd, nil
		}
	}

	return 0, fmt.Errorf("%w: unknown weekday `%s`", ErrInvalidRecurrence, s)
}

func parseOrdinal(s string) (Ordinal, error) {
	for _, o := range ordinals {
		if strings.EqualFold(s, string(o)) {
			return o, nil
		}
	}

	return "", fmt.Errorf("%w: unknown ordinal `%s`, expected First, Second, Third, Fourth or Last", ErrInvalidRecurrence, s)
}
