/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package logtest

import (
	"fmt"
	"time"

	"github.com/acronis/go-utilkit/log"
)

func Example() {
	flushBatch := func(size int, took time.Duration, logger log.FieldLogger) {
		logger.Warn("batch flushed late", log.Int("size", size), log.String("took", took.String()))
	}

	rec := NewRecorder()
	flushBatch(7, 1500*time.Millisecond, rec)

	entry, found := rec.FindEntry("batch flushed late")
	if !found {
		fmt.Println("not logged")
		return
	}
	size, _ := entry.FindField("size")
	took, _ := entry.FindField("took")
	fmt.Printf("[%s] %s size=%d took=%s\n", entry.Level, entry.Text, size.Int, took.Bytes)

	// Output:
	// [warn] batch flushed late size=7 took=1.5s
}
