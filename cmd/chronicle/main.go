// Command chronicle is the background screenshot indexer daemon and its
// maintenance CLI.
package main

import (
	"fmt"
	"os"

	"github.com/chroniclehq/chronicle/internal/version"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "start":
		cmdStart(os.Args[2:])
	case "stop":
		cmdStop()
	case "status":
		cmdStatus()
	case "init-config":
		cmdInitConfig()
	case "install-service":
		cmdInstallService()
	case "uninstall-service":
		cmdUninstallService()
	case "reprocess-tags":
		cmdReprocessTags()
	case "compute-hashes":
		cmdComputeHashes()
	case "find-similar":
		cmdFindSimilar(os.Args[2:])
	case "delete":
		cmdDelete(os.Args[2:])
	case "version":
		fmt.Println(version.String())
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Usage: chronicle <command> [options]

Commands:
  start              Start the chronicle daemon
  stop               Stop the running daemon
  status             Show daemon status and index summary
  init-config        Generate default config file
  install-service    Install as a launchd user agent (macOS)
  uninstall-service  Remove the launchd user agent
  reprocess-tags     Re-derive tags for every indexed entry
  compute-hashes     Compute perceptual hashes for entries missing one
  find-similar       List near-duplicate groups [threshold]
  delete             Delete indexed entries by path
  version            Print version information
  help               Show this help message

Options:
  --foreground     Run in foreground (with 'start')`)
}
