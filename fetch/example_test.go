/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package fetch_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/acronis/go-utilkit/fetch"
	"github.com/acronis/go-utilkit/retry"
)

func ExampleClient_GetJSON() {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"version": "1.2.3"}`))
	}))
	defer srv.Close()

	client, err := fetch.NewWithOpts(fetch.NewDefaultConfig(), fetch.Opts{
		RetryPolicy: retry.NewConstantBackoffPolicy(10*time.Millisecond, 3),
	})
	if err != nil {
		fmt.Println(err)
		return
	}

	var info struct {
		Version string `json:"version"`
	}
	if err = client.GetJSON(context.Background(), srv.URL+"/info", &info); err != nil {
		fmt.Println(err)
		return
	}
	fmt.Printf("version %s after %d attempts\n", info.Version, attempts)

	// Output: version 1.2.3 after 2 attempts
}
