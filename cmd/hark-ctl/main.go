package main

import (
	"fmt"

	cli "github.com/spf13/pflag"

	"hark/internal/ipc"
)

func main() {
	socket := cli.StringP("socket", "s", ipc.DefaultSocketPath, "Daemon control socket")
	duration := cli.Float64P("duration", "d", 0, "Capture window override, seconds")
	cli.Parse()

	err := ipc.Send(*socket, ipc.ControlMessage{Cmd: "capture", Duration: *duration})
	if err != nil {
		fmt.Println("hark-daemon not running:", err)
	}
}
