/*
	pmana analyzes photomultiplier test-stand campaigns: it sorts raw dumps,
	fits the channel histograms, joins the fits with time and temperature,
	and plots the results.
*/
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
