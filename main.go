package main

import (
	"github.com/mj1618/screen-macro/cmd"

	_ "github.com/mj1618/screen-macro/internal/platform/darwin"
	_ "github.com/mj1618/screen-macro/internal/platform/win32"
)

func main() {
	cmd.Execute()
}
