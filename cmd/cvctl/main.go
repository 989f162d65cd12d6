package main

import "github.com/duongduc025/CV-Management-sub000/cmd/cvctl/cmd"

func main() {
	cmd.Execute()
}
