package main

import "github.com/NullRecords/nullrecords-cms/cmd"

func main() {
	cmd.Execute()
}
