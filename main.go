package main

import "AirgapFM/cmd"

func main() {
	cmd.Execute()
}
