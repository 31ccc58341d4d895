package main

import "github.com/nsxzhou1114/shock-api/cmd"

func main() {
	cmd.Execute()
}
