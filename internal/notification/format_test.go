package notification

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOrdinalSuffix(t *testing.T) {
	tests := []struct {
		day  int
		want string
	}{
		{1, "st"}, {2, "nd"}, {3, "rd"}, {4, "th"},
		{11, "th"}, {12, "th"}, {13, "th"},
		{21, "st"}, {22, "nd"}, {23, "rd"}, {24, "th"},
		{31, "st"}, {111, "th"}, {101, "st"}, {0, "th"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, OrdinalSuffix(tt.day), "day %d", tt.day)
	}
	assert.Equal(t, "21st", Ordinal(21))
	assert.Equal(t, "12th", Ordinal(12))
}

func TestNextPaymentDate(t *testing.T) {
	date := func(y int, m time.Month, d int) time.Time {
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	}
	at := func(y int, m time.Month, d int) time.Time {
		return time.Date(y, m, d, 14, 30, 0, 0, time.UTC)
	}

	tests := []struct {
		name string
		day  int
		now  time.Time
		want time.Time
	}{
		{name: "later this month", day: 25, now: at(2025, time.January, 20), want: date(2025, time.January, 25)},
		{name: "already passed this month", day: 15, now: at(2025, time.January, 20), want: date(2025, time.February, 15)},
		{name: "today", day: 20, now: at(2025, time.January, 20), want: date(2025, time.January, 20)},
		{name: "december rolls into january", day: 5, now: at(2024, time.December, 10), want: date(2025, time.January, 5)},
		{name: "clamped to short month", day: 31, now: at(2025, time.February, 3), want: date(2025, time.February, 28)},
		{name: "clamped to leap february", day: 30, now: at(2024, time.February, 1), want: date(2024, time.February, 29)},
		{name: "clamped after rollover", day: 31, now: at(2025, time.April, 30), want: date(2025, time.April, 30)},
		{name: "rollover into short month", day: 30, now: at(2025, time.January, 31), want: date(2025, time.February, 28)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NextPaymentDate(tt.day, tt.now))
		})
	}
}

func TestFormatNextPaymentDate(t *testing.T) {
	now := time.Date(2025, time.January, 20, 9, 0, 0, 0, time.UTC)

	assert.Equal(t, "15 February 2025", FormatNextPaymentDate(15, now))
	assert.Equal(t, "25 January 2025", FormatNextPaymentDate(25, now))
}

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		minor int64
		want  string
	}{
		{2550, "£25.50"},
		{0, "£0.00"},
		{5, "£0.05"},
		{100, "£1.00"},
		{123456, "£1234.56"},
		{-2550, "-£25.50"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatAmount(tt.minor))
	}
}
