// Package providers holds what the listing provider clients share. Each
// provider lives in its own subpackage with request builders that return
// bulk.Request values and a Client that sends them.
package providers

import (
	"context"
	"fmt"

	"github.com/Sternrassler/domus-client/pkg/bulk"
	"github.com/Sternrassler/domus-client/pkg/jsonp"
)

// BrowserUserAgent is sent where a provider rejects non-browser clients.
const BrowserUserAgent = "Mozilla/5.0 (X11; Linux x86_64; rv:129.0) Gecko/20100101 Firefox/129.0"

// Decode checks that result carries a 2xx response and unmarshals its body
// into v. Anti-hijacking prefixes and callback wrappers are stripped first.
func Decode(result bulk.Result, v any) error {
	if err := result.AsError(); err != nil {
		return err
	}
	if err := jsonp.Decode(result.Body, v); err != nil {
		return fmt.Errorf("%s: %w", result.Key, err)
	}
	return nil
}

// SendJSON sends request through sender and decodes the answer into v.
func SendJSON(ctx context.Context, sender bulk.Sender, request bulk.Request, v any) error {
	result, err := sender.Send(ctx, request)
	if err != nil {
		return err
	}
	return Decode(result, v)
}
