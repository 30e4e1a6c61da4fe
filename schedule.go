// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package aumlib

import (
	"errors"
	"fmt"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
)

// MaintenanceScope is the kind of maintenance a configuration controls.
type MaintenanceScope string

const (
	MaintenanceScopeInGuestPatch MaintenanceScope = "InGuestPatch"
	MaintenanceScopeHost         MaintenanceScope = "Host"
	MaintenanceScopeOSImage      MaintenanceScope = "OSImage"
	MaintenanceScopeResource     MaintenanceScope = "Resource"
)

// ParseMaintenanceScope parses s case-insensitively.
func ParseMaintenanceScope(s string) (MaintenanceScope, error) {
	for _, ms := range []MaintenanceScope{
		MaintenanceScopeInGuestPatch,
		MaintenanceScopeHost,
		MaintenanceScopeOSImage,
		MaintenanceScopeResource,
	} {
		if strings.EqualFold(strings.TrimSpace(s), string(ms)) {
			return ms, nil
		}
	}

	return "", fmt.Errorf("unknown maintenance scope `%s`, expected one of InGuestPatch, Host, OSImage, Resource", s)
}

// RebootSetting controls whether machines reboot after patch installation.
type RebootSetting string

const (
	RebootIfRequired RebootSetting = "IfRequired"
	RebootAlways     RebootSetting = "Always"
	RebootNever      RebootSetting = "Never"
)

// ParseRebootSetting parses s case-insensitively. There is no default, an empty value is an error.
func ParseRebootSetting(s string) (RebootSetting, error) {
	for _, rs := range []RebootSetting{RebootIfRequired, RebootAlways, RebootNever} {
		if strings.EqualFold(strings.TrimSpace(s), string(rs)) {
			return rs, nil
		}
	}

	return "", fmt.Errorf("unknown reboot setting `%s`, expected one of IfRequired, Always, Never", s)
}

// ScopeSettings is the variant part of a Schedule.
// Only the settings type matching the maintenance scope can be attached, so fields that are
// meaningless for a scope (OS, classifications, filters, reboot) cannot be set on it.
type ScopeSettings interface {
	MaintenanceScope() MaintenanceScope
	scopeSettings()
}

var (
	_ ScopeSettings = (*InGuestPatch)(nil)
	_ ScopeSettings = HostMaintenance{}
	_ ScopeSettings = OSImageMaintenance{}
	_ ScopeSettings = ResourceMaintenance{}
)

// HostMaintenance controls platform updates to the physical host.
type HostMaintenance struct{}

func (HostMaintenance) MaintenanceScope() MaintenanceScope { return MaintenanceScopeHost }
func (HostMaintenance) scopeSettings()                     {}

// OSImageMaintenance controls OS image upgrades of scale sets.
type OSImageMaintenance struct{}

func (OSImageMaintenance) MaintenanceScope() MaintenanceScope { return MaintenanceScopeOSImage }
func (OSImageMaintenance) scopeSettings()                     {}

// ResourceMaintenance controls platform updates to a resource.
type ResourceMaintenance struct{}

func (ResourceMaintenance) MaintenanceScope() MaintenanceScope { return MaintenanceScopeResource }
func (ResourceMaintenance) scopeSettings()                     {}

// InGuestPatch carries the guest OS patching parameters.
type InGuestPatch struct {
	Reboot   RebootSetting
	OS       OSPatch
	PreTask  *TaskReference
	PostTask *TaskReference
}

func (*InGuestPatch) MaintenanceScope() MaintenanceScope { return MaintenanceScopeInGuestPatch }
func (*InGuestPatch) scopeSettings()                     {}

// OsType returns the operating system of the patch settings, empty when no OS settings are set.
func (p *InGuestPatch) OsType() OsType {
	if p == nil || p.OS == nil {
		return ""
	}

	return p.OS.OsType()
}

// OSPatch is the OS specific part of InGuestPatch: either *WindowsPatch or *LinuxPatch.
type OSPatch interface {
	OsType() OsType
	PatchClassifications() []Classification
	osPatch()
}

var (
	_ OSPatch = (*WindowsPatch)(nil)
	_ OSPatch = (*LinuxPatch)(nil)
)

// WindowsPatch filters Windows updates by classification and KB identifier.
type WindowsPatch struct {
	Classifications           mapset.Set[Classification]
	KbNumbersToInclude        []string
	KbNumbersToExclude        []string
	ExcludeKbsRequiringReboot bool
}

func (*WindowsPatch) OsType() OsType { return OsTypeWindows }
func (*WindowsPatch) osPatch()       {}

// PatchClassifications returns the classifications in vocabulary order.
func (w *WindowsPatch) PatchClassifications() []Classification {
	return sortedOrEmpty(OsTypeWindows, w.Classifications)
}

// LinuxPatch filters Linux packages by classification and package name mask.
type LinuxPatch struct {
	Classifications           mapset.Set[Classification]
	PackageNameMasksToInclude []string
	PackageNameMasksToExclude []string
}

func (*LinuxPatch) OsType() OsType { return OsTypeLinux }
func (*LinuxPatch) osPatch()       {}

// PatchClassifications returns the classifications in vocabulary order.
func (l *LinuxPatch) PatchClassifications() []Classification {
	return sortedOrEmpty(OsTypeLinux, l.Classifications)
}

func sortedOrEmpty(os OsType, set mapset.Set[Classification]) []Classification {
	if set == nil {
		return []Classification{}
	}

	return SortedClassifications(os, set)
}

// TaskReference points at a pre or post maintenance task. The source is opaque to this library.
type TaskReference struct {
	Source     string
	Parameters map[string]string
}

// MaintenanceWindow is the scheduling window of a Schedule.
type MaintenanceWindow struct {
	StartDateTime      string // yyyy-MM-dd HH:mm
	ExpirationDateTime string // optional, yyyy-MM-dd HH:mm
	Duration           string // HH:mm
	TimeZone           string
}

// Schedule is one desired maintenance window.
// The name is unique within the target resource group and is the idempotency key for the
// maintenance configuration created from it.
type Schedule struct {
	Name          string
	Settings      ScopeSettings
	Recurrence    Recurrence
	Window        MaintenanceWindow
	DynamicScopes []*DynamicScope

	resolvedConfigID string
}

// ErrConfigIDAlreadyResolved is returned when a resolved configuration ID would be overwritten.
var ErrConfigIDAlreadyResolved = errors.New("maintenance configuration id already resolved")

// MaintenanceScope returns the maintenance scope of the schedule settings.
func (s *Schedule) MaintenanceScope() MaintenanceScope {
	if s.Settings == nil {
		return ""
	}

	return s.Settings.MaintenanceScope()
}

// InGuestPatch returns the in-guest patch settings and true if this is an InGuestPatch schedule.
func (s *Schedule) InGuestPatch() (*InGuestPatch, bool) {
	p, ok := s.Settings.(*InGuestPatch)
	return p, ok && p != nil
}

// ResolvedConfigID returns the maintenance configuration resource id, if it has been resolved.
func (s *Schedule) ResolvedConfigID() (string, bool) {
	return s.resolvedConfigID, s.resolvedConfigID != ""
}

// ResolveConfigID records the maintenance configuration resource id.
// It may be set exactly once, setting the same value again is a no-op.
func (s *Schedule) ResolveConfigID(id string) error {
	if id == "" {
		return fmt.Errorf("schedule `%s`: empty maintenance configuration id", s.Name)
	}

	if s.resolvedConfigID != "" {
		if strings.EqualFold(s.resolvedConfigID, id) {
			return nil
		}

		return fmt.Errorf("schedule `%s`: %w: have `%s`, got `%s`", s.Name, ErrConfigIDAlreadyResolved, s.resolvedConfigID, id)
	}

	s.resolvedConfigID = id

	return nil
}
