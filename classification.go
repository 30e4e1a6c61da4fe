// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package aumlib

import (
	"fmt"
	"slices"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
)

// OsType is the operating system family an in-guest patch schedule applies to.
type OsType string

const (
	OsTypeWindows OsType = "Windows"
	OsTypeLinux   OsType = "Linux"
)

// OsTypes returns the supported operating system families in a stable order.
func OsTypes() []OsType {
	return []OsType{OsTypeWindows, OsTypeLinux}
}

// ParseOsType parses s case-insensitively.
func ParseOsType(s string) (OsType, error) {
	for _, os := range OsTypes() {
		if strings.EqualFold(strings.TrimSpace(s), string(os)) {
			return os, nil
		}
	}

	return "", fmt.Errorf("unknown os type `%s`, expected one of Windows, Linux", s)
}

// Short returns a one letter abbreviation, used where resource names are length constrained.
func (o OsType) Short() string {
	if o == OsTypeLinux {
		return "l"
	}

	return "w"
}

// Classification is an update classification, drawn from an OS specific vocabulary.
type Classification string

const (
	ClassificationCritical     Classification = "Critical"
	ClassificationSecurity     Classification = "Security"
	ClassificationUpdateRollup Classification = "UpdateRollup"
	ClassificationFeaturePack  Classification = "FeaturePack"
	ClassificationServicePack  Classification = "ServicePack"
	ClassificationDefinition   Classification = "Definition"
	ClassificationTools        Classification = "Tools"
	ClassificationUpdates      Classification = "Updates"
	ClassificationOther        Classification = "Other"
)

var classificationVocabulary = map[OsType][]Classification{
	OsTypeWindows: {
		ClassificationCritical,
		ClassificationSecurity,
		ClassificationUpdateRollup,
		ClassificationFeaturePack,
		ClassificationServicePack,
		ClassificationDefinition,
		ClassificationTools,
		ClassificationUpdates,
	},
	OsTypeLinux: {
		ClassificationCritical,
		ClassificationSecurity,
		ClassificationOther,
	},
}

// ClassificationsFor returns the classification vocabulary for the operating system.
func ClassificationsFor(os OsType) []Classification {
	return slices.Clone(classificationVocabulary[os])
}

// ParseClassifications validates the supplied values against the vocabulary of the operating system.
// Matching is case-insensitive, the returned set holds the canonical spelling.
func ParseClassifications(os OsType, values []string) (mapset.Set[Classification], error) {
	vocab, ok := classificationVocabulary[os]
	if !ok {
		return nil, fmt.Errorf("no classification vocabulary for os type `%s`", os)
	}

	res := mapset.NewThreadUnsafeSet[Classification]()

	for _, v := range values {
		idx := slices.IndexFunc(vocab, func(c Classification) bool {
			return strings.EqualFold(string(c), strings.TrimSpace(v))
		})
		if idx < 0 {
			return nil, fmt.Errorf("classification `%s` is not valid for %s, expected one of %s", v, os, joinClassifications(vocab))
		}

		res.Add(vocab[idx])
	}

	return res, nil
}

// SortedClassifications returns the members of the set in vocabulary order.
func SortedClassifications(os OsType, set mapset.Set[Classification]) []Classification {
	res := make([]Classification, 0, set.Cardinality())

	for _, c := range classificationVocabulary[os] {
		if set.Contains(c) {
			res = append(res, c)
		}
	}

	return res
}

func joinClassifications(cs []Classification) string {
	s := make([]string, len(cs))
	for i, c := range cs {
		s[i] = string(c)
	}

	return strings.Join(s, ", ")
}
