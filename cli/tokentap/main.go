package main

import (
	"os"

	tokentapcmder "github.com/papercomputeco/tokentap/cmd/tokentap"
)

func main() {
	cmd := tokentapcmder.NewTokentapCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
