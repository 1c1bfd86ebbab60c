package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/korimako-electronics/vdivider-gauge/ads1115"
	"github.com/korimako-electronics/vdivider-gauge/gauge"
)

func TestReadingLine(t *testing.T) {
	ts := time.Date(2024, 6, 3, 14, 30, 5, 0, time.UTC)
	s := gauge.SampleState{Raw: 16000, VoltageMV: 4012, Percent: 92}
	assert.Equal(t, "2024-06-03 14:30:05, 16000, 4.012, 92", readingLine(ts, s))
}

func TestFullScaleFromMV(t *testing.T) {
	fs, err := fullScaleFromMV(4096)
	assert.NoError(t, err)
	assert.Equal(t, ads1115.FS4096mV, fs)

	_, err = fullScaleFromMV(5000)
	assert.Error(t, err)
}
