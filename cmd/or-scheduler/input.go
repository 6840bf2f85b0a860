package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/noah-isme/or-scheduler-api/internal/dto"
)

// readFile reads path, or stdin when path is "-".
func readFile(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

func isCSV(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".csv")
}

// decodeScheduleRequest accepts either a full request document or a bare list
// of surgeries. JSON input is read through the YAML decoder.
func decodeScheduleRequest(raw []byte) (dto.ScheduleRequest, error) {
	var req dto.ScheduleRequest
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return req, fmt.Errorf("input is empty")
	}
	if trimmed[0] == '[' || bytes.HasPrefix(trimmed, []byte("- ")) {
		var surgeries []dto.SurgeryRequest
		if err := yaml.Unmarshal(trimmed, &surgeries); err != nil {
			return req, fmt.Errorf("decode surgeries: %w", err)
		}
		req.Surgeries = surgeries
		return req, nil
	}
	if err := yaml.Unmarshal(trimmed, &req); err != nil {
		return req, fmt.Errorf("decode schedule request: %w", err)
	}
	return req, nil
}

func decodeSurgery(raw []byte) (dto.SurgeryRequest, error) {
	var req dto.SurgeryRequest
	if len(bytes.TrimSpace(raw)) == 0 {
		return req, fmt.Errorf("input is empty")
	}
	if err := yaml.Unmarshal(raw, &req); err != nil {
		return req, fmt.Errorf("decode surgery: %w", err)
	}
	return req, nil
}
