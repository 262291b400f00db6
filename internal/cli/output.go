package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/DanstheMan1981/allrails/internal/domain"
	"github.com/DanstheMan1981/allrails/internal/manager"
	"github.com/DanstheMan1981/allrails/internal/registry"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeMethods(w io.Writer, methods []domain.PaymentMethod) error {
	if len(methods) == 0 {
		_, err := fmt.Fprintln(w, "No payment methods yet.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tID\tTYPE\tLABEL\tHANDLE\tACTIVE")
	for i, m := range methods {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%t\n", i, m.ID, m.Type, registry.DisplayLabel(m.Type, m.Label), m.Handle, m.Active)
	}
	return tw.Flush()
}

// describe turns an error into the message shown to the user.
func describe(err error) string {
	var reloadErr *manager.ReloadError
	var validationErr *domain.ValidationError
	var transportErr *domain.TransportError
	switch {
	case errors.As(err, &reloadErr):
		return "saved, but the list could not be refreshed: " + describe(reloadErr.Err)
	case errors.Is(err, domain.ErrUnauthorized):
		return "not signed in: set ALLRAILS_TOKEN or pass --token"
	case errors.Is(err, domain.ErrNotFound):
		return "not found"
	case errors.Is(err, manager.ErrOrderingInFlight):
		return err.Error()
	case errors.As(err, &validationErr):
		return "invalid input: " + validationErr.Error()
	case errors.As(err, &transportErr):
		return transportErr.Error()
	default:
		return err.Error()
	}
}
