package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"primegap/pkg/client"
)

const Prompt = "gap> "

func main() {
	serverAddr := flag.String("addr", "localhost:9090", "primegap TCP server address")
	flag.Parse()

	fmt.Printf("primegap CLI (Target: %s)\n", *serverAddr)
	fmt.Println("Connecting...")

	cli, err := client.Dial(*serverAddr)
	if err != nil {
		fmt.Printf("Connection failed: %v\n", err)
		fmt.Println("Tip: Ensure the server is running (e.g. gapctl serve).")
		return
	}
	defer cli.Close()
	fmt.Println("Connected! Type 'help' for commands.")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print(Prompt)
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		parts := strings.Fields(line)
		cmd := strings.ToLower(parts[0])

		switch cmd {
		case "predict", "p":
			handlePredict(cli, parts)
		case "stats":
			handleStats(cli)
		case "calibration", "cal":
			handleCalibration(cli)
		case "help":
			printHelp()
		case "exit", "quit":
			fmt.Println("Bye!")
			return
		default:
			fmt.Printf("Unknown command: '%s'. Type 'help'.\n", cmd)
		}
	}
}

func handlePredict(cli *client.Client, parts []string) {
	if len(parts) < 3 {
		fmt.Println("Usage: predict <index> <prime>")
		return
	}

	index, err1 := strconv.Atoi(parts[1])
	value, err2 := strconv.ParseInt(parts[2], 10, 64)
	if err1 != nil || err2 != nil {
		fmt.Println("Error: index and prime must be integers (e.g., predict 400 2753)")
		return
	}

	start := time.Now()
	p, err := cli.Predict(index, value)
	duration := time.Since(start)

	if err != nil {
		fmt.Printf("Error: %v\n", err)
	} else {
		fmt.Printf("%d  [%s, raw=%.4f] (%v)\n", p.Gap, p.Regime, p.Raw, duration)
	}
}

func handleStats(cli *client.Client) {
	s, err := cli.Stats()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Printf("sieve=%d entropy=%d invalid=%d checked=%d covered=%d (%.2f%%)\n",
		s.Sieve, s.Entropy, s.Invalid, s.Checked, s.Covered, s.Coverage*100)
}

func handleCalibration(cli *client.Client) {
	c, err := cli.Calibration()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Printf("%s: C_root=%g C_add=%g threshold=%s sieve=%s entropy=%s\n",
		c.Name, c.RootScaling, c.Correction, c.Threshold.Kind, c.Sieve, c.Entropy)
}

func printHelp() {
	fmt.Println(`
Commands:
  predict <index> <prime>   Predict the gap after P_index
  stats                     Server-side prediction counters
  calibration               Active calibration on the server
  exit                      Exit CLI
	`)
}
