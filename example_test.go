package luascope_test

import (
	"fmt"
	"log"

	"github.com/lualab/luascope"
)

// Example demonstrates interactive script execution through the shared
// host: the return value and all printed output come back captured.
func Example() {
	explorer, err := luascope.New("examples")
	if err != nil {
		log.Fatal(err)
	}
	defer explorer.Close()

	out, err := explorer.RunScript(`"hello " .. "world"`)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(*out.ReturnValue)
	// Output: hello world
}

// ExampleExplorer_RunExample runs a repository example with its declared
// input defaults applied.
func ExampleExplorer_RunExample() {
	explorer, err := luascope.New("examples")
	if err != nil {
		log.Fatal(err)
	}
	defer explorer.Close()

	out, err := explorer.RunExample("hello-world")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Print(out.Stdout)
	// Output: Hello, world!
}

// ExampleExplorer_RunExampleWith overrides an example's inputs for a
// single run.
func ExampleExplorer_RunExampleWith() {
	explorer, err := luascope.New("examples")
	if err != nil {
		log.Fatal(err)
	}
	defer explorer.Close()

	out, err := explorer.RunExampleWith("hello-world", map[string]string{"name": "gopher"})
	if err != nil {
		log.Fatal(err)
	}
	fmt.Print(out.Stdout)
	// Output: Hello, gopher!
}
