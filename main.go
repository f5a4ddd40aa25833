package main

import "github.com/skybox-cloud/ms-go-billing/cmd"

func main() {
	cmd.Execute()
}
