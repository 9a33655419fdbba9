// pinyind is a pinyin input method for IBus.
//
//	pinyind run                 Serve the engine (started by ibus-daemon)
//	pinyind install             Write the IBus component file
//	pinyind uninstall           Remove the IBus component file
//	pinyind dict import <file>  Import a plain-text table into the dictionary
//	pinyind dict stats          Show dictionary size and the last import
//	pinyind config check        Validate the configuration
//	pinyind config show         Print the effective configuration
//	pinyind config init         Write a default configuration file
package main

import (
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
