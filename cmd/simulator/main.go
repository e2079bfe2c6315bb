package main

import (
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

var (
	addr          = flag.String("addr", ":8000", "Listen address")
	headerSession = flag.Bool("header-session", false, "Announce new chat sessions in the X-Session-ID header")
	chunkDelay    = flag.Duration("chunk-delay", 40*time.Millisecond, "Delay between streamed chat words")
	latency       = flag.Duration("latency", 0, "Extra latency added to every request")
	interactive   = flag.Bool("interactive", false, "Enable interactive mode")
	verbose       = flag.Bool("verbose", false, "Enable verbose logging")
)

func main() {
	flag.Parse()

	var logger *zap.Logger
	var err error
	if *verbose {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	config := &SimulatorConfig{
		Addr:          *addr,
		HeaderSession: *headerSession,
		ChunkDelay:    *chunkDelay,
		Latency:       *latency,
	}
	simulator := NewSimulator(config, logger)

	ln, err := net.Listen("tcp", config.Addr)
	if err != nil {
		logger.Fatal("Failed to listen", zap.String("addr", config.Addr), zap.Error(err))
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down simulator...")
		simulator.Stop()
		os.Exit(0)
	}()

	go func() {
		if err := simulator.Listen(ln); err != nil {
			logger.Fatal("Simulator stopped", zap.Error(err))
		}
	}()

	if *interactive {
		runInteractiveMode(simulator)
		simulator.Stop()
		return
	}

	fmt.Printf("AI backend simulator started\n")
	fmt.Printf("  Listening: %s\n", ln.Addr())
	fmt.Printf("  Header session ids: %v\n", *headerSession)
	fmt.Println("\nPress Ctrl+C to stop")

	select {}
}

func runInteractiveMode(sim *Simulator) {
	fmt.Println("\nAI Backend Simulator - Interactive Mode")
	fmt.Println("=======================================")
	fmt.Println("Commands:")
	fmt.Println("  fail <capability|all>      - Make a capability return 500 (voice, chat, stt, tts, ...)")
	fmt.Println("  fail <capability|all> off  - Stop failing")
	fmt.Println("  slow <duration>            - Add latency to every request (slow 0 to reset)")
	fmt.Println("  stats                      - Print request and session counts")
	fmt.Println("  quit                       - Exit simulator")
	fmt.Println("")

	sim.RunInteractive()
}
