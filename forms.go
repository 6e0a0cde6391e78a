package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/siteharvester/gateway/client"
	"github.com/siteharvester/gateway/form"
	"github.com/siteharvester/gateway/store"
)

var (
	outDir  string
	contact form.ContactFields
)

var harvestCmd = &cobra.Command{
	Use:   "harvest [url]",
	Short: "Harvest a web page into a PDF report",
	Args:  cobra.ExactArgs(1),
	RunE:  runHarvest,
}

var contactCmd = &cobra.Command{
	Use:   "contact",
	Short: "Send a message through the contact form",
	Args:  cobra.NoArgs,
	RunE:  runContact,
}

func init() {
	harvestCmd.Flags().StringVarP(&outDir, "out", "o", defaultDownloadDir(), "Directory the PDF is saved to")

	f := contactCmd.Flags()
	f.StringVar(&contact.Name, "name", "", "Your name")
	f.StringVar(&contact.Email, "email", "", "Your e-mail address")
	f.StringVarP(&contact.Message, "message", "m", "", "The message")
	f.BoolVar(&contact.Subscribe, "subscribe", false, "Agree to be contacted (required)")
}

func newGatewayClient() *client.Client {
	return client.NewClient(gatewayURL, client.WithTimeout(timeout))
}

func runHarvest(cmd *cobra.Command, args []string) error {
	h := form.NewHarvest(newGatewayClient(), store.NewFileStore(outDir), form.WithSuccessDisplay(0))
	defer h.Close()

	h.SetURL(args[0])
	return report(cmd, h.Submit)
}

func runContact(cmd *cobra.Command, args []string) error {
	c := form.NewContact(newGatewayClient())
	defer c.Close()

	c.SetFields(contact)
	return report(cmd, c.Submit)
}

// report runs a submission and prints its outcome the way the page would show it.
func report(cmd *cobra.Command, submit func(context.Context) (form.State, error)) error {
	state, err := submit(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch state.Status {
	case form.Error:
		return errors.New(state.Err)
	case form.Success:
		fmt.Fprintln(out, state.Success)
		if state.Saved != "" {
			fmt.Fprintf(out, "Saved to %s\n", state.Saved)
		}
	}

	return nil
}
