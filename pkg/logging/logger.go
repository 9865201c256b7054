// Package logging builds the ectologger instance shared by the service.
package logging

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/Gobusters/ectologger"
)

var levelWeights = map[string]int{
	"debug": 0,
	"info":  1,
	"warn":  2,
	"error": 3,
}

// New returns a logger that writes one JSON line per message to stdout.
// Messages below the configured level are dropped.
func New(level string) ectologger.Logger {
	threshold, ok := levelWeights[strings.ToLower(level)]
	if !ok {
		threshold = levelWeights["info"]
	}

	return ectologger.NewEctoLogger(func(msg ectologger.EctoLogMessage) {
		data, err := json.Marshal(msg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "logging: failed to marshal log message: %v\n", err)
			return
		}

		// The message level is filtered off the serialized form so the sink
		// stays independent of the ectologger message layout.
		var fields map[string]any
		if err := json.Unmarshal(data, &fields); err == nil {
			for key, value := range fields {
				if strings.EqualFold(key, "level") {
					if weight, ok := levelWeights[strings.ToLower(fmt.Sprint(value))]; ok && weight < threshold {
						return
					}
					break
				}
			}
		}

		fmt.Fprintln(os.Stdout, string(data))
	})
}
