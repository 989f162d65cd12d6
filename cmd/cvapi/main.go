package main

import "github.com/duongduc025/CV-Management-sub000/cmd/cvapi/cmd"

func main() {
	cmd.Execute()
}
