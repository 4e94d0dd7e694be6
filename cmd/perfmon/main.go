// perfmon runs the telemetry engine against its own process: the tick loop
// stands in for a host simulation, the runtime collector feeds the registry,
// and the debug HTTP surface, webhook notifier, and snapshot archive are
// enabled by flags.
package main

import (
	"context"
	"log"
)

func main() {
	if err := parseFlags(); err != nil {
		log.Fatal(err)
	}

	if err := run(context.Background()); err != nil {
		log.Fatal(err)
	}
}
