package main

import "github.com/ArashRezazadeh/DataAnnotations/cmd/authd/cmd"

func main() {
	cmd.Execute()
}
