// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

// Package report renders the identity handoff report and the run summary.
package report

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/Azure/aumlib/deployment"
	"github.com/nao1215/markdown"
)

var (
	ErrReportGenerationFailed = fmt.Errorf("failed to generate report")
	ErrUnknownFormat          = fmt.Errorf("unknown report format")
)

// Format is the output format of the identity handoff report.
type Format string

const (
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
)

// ParseFormat parses a report format name, case insensitive.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatMarkdown:
		return f, nil
	case "md":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("report.ParseFormat: %w `%s`, use csv or markdown", ErrUnknownFormat, s)
	}
}

var identityHeader = []string{
	"Binding Name",
	"Display Name",
	"Principal ID",
	"Identity Kind",
	"Role Name",
	"Role Definition ID",
	"Scope",
	"Status",
}

func identityRow(id deployment.Identity) []string {
	return []string{
		id.AssignmentName,
		id.DisplayName,
		id.PrincipalID,
		id.Kind,
		id.RoleName,
		id.RoleDefinitionID,
		id.Scope,
		id.Status,
	}
}

// Identities writes the identity handoff report in the requested format.
func Identities(w io.Writer, format Format, ids []deployment.Identity) error {
	switch format {
	case FormatCSV:
		return IdentitiesCSV(w, ids)
	case FormatMarkdown:
		return IdentitiesMarkdown(w, ids)
	default:
		return fmt.Errorf("report.Identities: %w `%s`", ErrUnknownFormat, format)
	}
}

// IdentitiesCSV writes the identity handoff report as CSV with a header row.
// An empty report is the header alone.
func IdentitiesCSV(w io.Writer, ids []deployment.Identity) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(identityHeader); err != nil {
		return errors.Join(ErrReportGenerationFailed, err)
	}

	for _, id := range ids {
		if err := cw.Write(identityRow(id)); err != nil {
			return errors.Join(ErrReportGenerationFailed, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return errors.Join(ErrReportGenerationFailed, err)
	}

	return nil
}

// IdentitiesMarkdown writes the identity handoff report as a Markdown table.
func IdentitiesMarkdown(w io.Writer, ids []deployment.Identity) error {
	md := markdown.NewMarkdown(w).
		H1("Managed identities requiring role assignment").LF()

	if len(ids) == 0 {
		md = md.PlainText("No policy assignment carries a managed identity.").LF()
	} else {
		md = md.PlainText(
			"Grant each identity the listed role at the listed scope, then run remediation again.",
		).LF()
		md = md.Table(identityTable(ids)).LF()
	}

	if err := md.Build(); err != nil {
		return errors.Join(ErrReportGenerationFailed, err)
	}

	return nil
}

func identityTable(ids []deployment.Identity) markdown.TableSet {
	t := markdown.TableSet{
		Header: identityHeader,
		Rows:   make([][]string, 0, len(ids)),
	}

	for _, id := range ids {
		t.Rows = append(t.Rows, identityRow(id))
	}

	return t
}

var outcomeOrder = []deployment.Outcome{
	deployment.OutcomeCreated,
	deployment.OutcomeExisting,
	deployment.OutcomeRegistered,
	deployment.OutcomeInitiated,
	deployment.OutcomePending,
	deployment.OutcomeSkipped,
	deployment.OutcomeFailed,
}

var phaseOrder = []deployment.Phase{
	deployment.PhaseProviders,
	deployment.PhaseMaintenance,
	deployment.PhaseScopes,
	deployment.PhasePolicies,
	deployment.PhaseRemediation,
}

// Summary writes the run summary in Markdown: totals per outcome followed by one table per phase
// that produced results.
func Summary(w io.Writer, sum *deployment.Summary) error {
	if sum == nil {
		return fmt.Errorf("report.Summary: %w: summary is nil", ErrReportGenerationFailed)
	}

	md := markdown.NewMarkdown(w).H1("Update management run summary").LF()
	md = summaryTarget(md, sum)
	md = summaryTotals(md, sum)

	for _, p := range phaseOrder {
		md = summaryPhase(md, p, sum.Phase(p))
	}

	if err := md.Build(); err != nil {
		return errors.Join(ErrReportGenerationFailed, err)
	}

	return nil
}

func summaryTarget(md *markdown.Markdown, sum *deployment.Summary) *markdown.Markdown {
	if sum.Plan == nil {
		return md
	}

	t := sum.Plan.Target

	return md.BulletList(
		"management group: `"+t.ManagementGroupID+"`",
		"subscription: `"+t.SubscriptionID+"`",
		"resource group: `"+t.ResourceGroup+"`",
		"location: `"+t.Location+"`",
	).LF()
}

func summaryTotals(md *markdown.Markdown, sum *deployment.Summary) *markdown.Markdown {
	t := markdown.TableSet{
		Header: []string{"Outcome", "Count"},
		Rows:   [][]string{},
	}

	for _, o := range outcomeOrder {
		if n := sum.Count(o); n > 0 {
			t.Rows = append(t.Rows, []string{string(o), strconv.Itoa(n)})
		}
	}

	if len(t.Rows) == 0 {
		return md.PlainText("Nothing was done.").LF()
	}

	md = md.Table(t).LF()
	if n := len(sum.Identities); n > 0 {
		md = md.PlainText(fmt.Sprintf("%d managed identities need a role assignment before remediation can succeed.", n)).LF()
	}

	return md
}

func summaryPhase(md *markdown.Markdown, p deployment.Phase, results []deployment.Result) *markdown.Markdown {
	if len(results) == 0 {
		return md
	}

	t := markdown.TableSet{
		Header: []string{"Item", "Outcome", "Resource", "Reason"},
		Rows:   make([][]string, 0, len(results)),
	}

	for _, r := range results {
		t.Rows = append(t.Rows, []string{r.Item, string(r.Outcome), r.ResourceID, oneLine(r.Reason())})
	}

	return md.H2(p.Title()).LF().Table(t).LF()
}

// oneLine keeps multi-line Azure error bodies from breaking the table.
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
