/*
vdivider-gauge - Battery gauge for voltage-divider measurement rigs
Copyright (C) 2024, Korimako Electronics

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/

package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/korimako-electronics/vdivider-gauge/gauge"
)

const (
	batteryReadingsFile = "/var/log/battery-readings.csv"
	batteryMaxLines     = 20000
)

// readingLine formats one CSV record: timestamp, raw sample, voltage,
// percent.
func readingLine(t time.Time, s gauge.SampleState) string {
	return fmt.Sprintf("%s, %d, %.3f, %d",
		t.Format("2006-01-02 15:04:05"), s.Raw, float64(s.VoltageMV)/1000, s.Percent)
}

func logBatteryReadingToFile(s gauge.SampleState) error {
	file, err := os.OpenFile(batteryReadingsFile, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0644)
	if err != nil {
		return err
	}
	defer file.Close()

	_, err = file.WriteString(readingLine(time.Now(), s) + "\n")
	return err
}

func keepLastLines(filePath string, maxLines int) error {
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return nil
	}
	tmpFile := filepath.Join(os.TempDir(), filepath.Base(filePath)+".tmp")
	err := os.Remove(tmpFile)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	commands := []string{"sh", "-c", fmt.Sprintf("tail -n %d %s > %s", maxLines, filePath, tmpFile)}
	cmd := exec.Command(commands[0], commands[1:]...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("err running '%s', %v, %v", strings.Join(commands, " "), string(out), err)
	}
	return os.Rename(tmpFile, filePath)
}
