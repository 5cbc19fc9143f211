// Command stablectl inspects stablekit store files without loading the
// application that wrote them.
package main

func main() {
	execute()
}
