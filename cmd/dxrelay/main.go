// Command dxrelay relays DX cluster spots to a chat room or the console.
package main

func main() {
	Execute()
}
