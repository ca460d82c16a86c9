package main

import (
	"github.com/Manu343726/g10/cmd"
)

func main() {
	cmd.Execute()
}
