package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/NullRecords/nullrecords-cms/pkg/eligibility"
	"github.com/NullRecords/nullrecords-cms/pkg/outreach"
	"github.com/NullRecords/nullrecords-cms/pkg/schedule"
	"github.com/NullRecords/nullrecords-cms/pkg/store"
)

func main() {
	// Usage: go run *.go -contacts outreach_contacts.json -cap 5

	contactsFlag := flag.String("contacts", "", "Path to a JSON contacts file")
	capFlag := flag.Int("cap", 5, "Daily cap")

	// Parse the command-line flags
	flag.Parse()

	if *contactsFlag == "" {
		fmt.Println("Contacts file is required. Please provide it using -contacts flag.")
		return
	}

	ctx := context.Background()
	st, err := store.Open(ctx, store.NewFileBackend(*contactsFlag))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	// Any backend works the same way; the JSON file is the simplest.
	now := time.Now()
	eligible := eligibility.Default().Eligible(st.All(), now, nil)
	targets := schedule.Schedule(eligible, *capFlag, nil, 0)

	composer := outreach.NewComposer(outreach.DefaultPressKit())
	for _, c := range targets {
		msg := composer.Compose(c)
		fmt.Printf("%s <%s>\n  %s\n", c.Name, c.Email, msg.Subject)
	}
}
