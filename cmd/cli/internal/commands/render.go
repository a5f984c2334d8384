package commands

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/mspkit/delegate/internal/pipeline"
	"github.com/mspkit/delegate/internal/scan"
)

// Report rendering is plain aligned text; the core produces structured
// records and this is the only place that turns them into presentation.

func renderPackageReport(w io.Writer, report *pipeline.PackageReport) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STAGE\tKEY\tOUTCOME\tDETAIL")
	for _, s := range report.Stages {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", s.Name, s.Key, s.Outcome, s.Detail)
	}
	tw.Flush()

	if len(report.Guests) > 0 {
		fmt.Fprintln(w)
		renderGuests(w, report)
	}

	fmt.Fprintf(w, "\n%d objects created this run\n", report.CreateCount)
}

func renderGuests(w io.Writer, report *pipeline.PackageReport) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "EMAIL\tINVITATION\tTAGGING")
	for _, g := range report.Guests {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", g.Record.Email, g.Invitation, g.Tagging)
	}
	tw.Flush()
}

func renderScanResult(w io.Writer, result *scan.Result) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SUBSCRIPTION\tNAME\tCLASSIFICATION")
	for _, s := range result.Eligible {
		fmt.Fprintf(tw, "%s\t%s\teligible\n", s.SubscriptionID, s.DisplayName)
	}
	for _, s := range result.Ineligible {
		fmt.Fprintf(tw, "%s\t%s\tineligible\n", s.SubscriptionID, s.DisplayName)
	}
	for _, s := range result.Disabled {
		fmt.Fprintf(tw, "%s\t%s\tdisabled\n", s.SubscriptionID, s.DisplayName)
	}
	tw.Flush()
	fmt.Fprintf(w, "\n%d subscriptions enumerated\n", result.Total())
}

func renderOnboardReport(w io.Writer, report *pipeline.OnboardReport) {
	for _, sr := range report.Subscriptions {
		fmt.Fprintf(w, "%s %s (%s)\n", sr.Status, sr.Subscription.DisplayName, sr.Subscription.SubscriptionID)
		if sr.Err != nil {
			fmt.Fprintf(w, "    error: %v\n", sr.Err)
		}
		for _, del := range sr.Delegations {
			name := del.ManagedByTenantName
			if name == "" {
				name = del.ManagedByTenantID
			}
			fmt.Fprintf(w, "    delegation %q managed by %s\n", del.Offer, name)
			for _, auth := range del.Authorizations {
				fmt.Fprintf(w, "        %s -> %s\n", auth.PrincipalName, auth.RoleName)
			}
			fmt.Fprintf(w, "    %s\n", del.Compliance)
		}
	}
	if len(report.Scan.Ineligible)+len(report.Scan.Disabled) > 0 {
		fmt.Fprintf(w, "\nskipped: %d ineligible, %d disabled\n", len(report.Scan.Ineligible), len(report.Scan.Disabled))
	}
}
