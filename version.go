// version.go: Version parsing and comparison for changelog decisions
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package pluginhost

import (
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/agilira/go-errors"
)

// ParseVersion parses s as a semantic version. Missing minor or patch
// components default to zero and a leading "v" is accepted, so "1.4" and
// "v1.4.0" are equal. Build metadata is kept but ignored when comparing.
func ParseVersion(s string) (*semver.Version, error) {
	v, err := semver.NewVersion(strings.TrimSpace(s))
	if err != nil {
		return nil, errors.Wrap(err, ErrCodeVersionResolution, "Invalid version").
			WithContext("version", s).
			WithSeverity("warning")
	}
	return v, nil
}

// CompareVersions parses and compares two version strings, returning -1, 0
// or 1. Prerelease identifiers follow semantic versioning precedence.
func CompareVersions(a, b string) (int, error) {
	va, err := ParseVersion(a)
	if err != nil {
		return 0, err
	}
	vb, err := ParseVersion(b)
	if err != nil {
		return 0, err
	}
	return va.Compare(vb), nil
}
