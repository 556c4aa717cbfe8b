// symfony-entrypoints resolves bundle reports into the entrypoints manifest
// read by the Symfony side.
package main

import "github.com/lhapaipai/vite-plugin-symfony/cmd/symfony-entrypoints/internal/cli"

func main() {
	cli.Execute()
}
