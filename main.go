package main

import "github.com/arbwatch/pmspread/cmd"

func main() {
	cmd.Execute()
}
