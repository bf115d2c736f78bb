package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"time"

	"primegap/pkg/protocol"
)

// 基准输入：P_400 与 P_401，分别落在分段阈值两侧
var benchPoints = [2]struct {
	index int
	value int64
}{
	{400, 2741},
	{401, 2749},
}

func main() {
	httpAddr := flag.String("http", "http://localhost:8080", "HTTP API base URL")
	tcpAddr := flag.String("tcp", "localhost:9090", "TCP server address")
	nReq := flag.Int("n", 5000, "Number of requests per run")
	flag.Parse()

	fmt.Printf("primegap Protocol Benchmark (N=%d)\n", *nReq)
	fmt.Printf("  HTTP=%s  TCP=%s\n", *httpAddr, *tcpAddr)
	fmt.Println("---------------------------------------------------")

	fmt.Println(">> Starting HTTP Benchmark (JSON over HTTP 1.1)...")
	httpDuration := runHTTPBenchmark(*httpAddr, *nReq)
	fmt.Printf("   HTTP Time: %v | QPS: %.0f\n\n", httpDuration, float64(*nReq)/httpDuration.Seconds())

	fmt.Println(">> Starting TCP Benchmark (Binary Protocol)...")
	tcpDuration := runTCPBenchmark(*tcpAddr, *nReq)
	fmt.Printf("   TCP  Time: %v | QPS: %.0f\n", tcpDuration, float64(*nReq)/tcpDuration.Seconds())

	fmt.Println("---------------------------------------------------")
	speedup := httpDuration.Seconds() / tcpDuration.Seconds()
	fmt.Printf("Conclusion: TCP is %.2fx faster than HTTP\n", speedup)
}

func runHTTPBenchmark(httpAddr string, n int) time.Duration {
	start := time.Now()
	client := &http.Client{
		Transport: &http.Transport{
			MaxIdleConnsPerHost: 100,
		},
	}

	for i := 0; i < n; i++ {
		// alternate across the breakpoint so both fields are exercised
		pt := benchPoints[i%2]
		url := fmt.Sprintf("%s/api/predict?index=%d&value=%d", httpAddr, pt.index, pt.value)
		resp, err := client.Get(url)
		if err != nil {
			log.Fatalf("HTTP Req failed: %v", err)
		}
		if resp.StatusCode != http.StatusOK {
			log.Fatalf("HTTP Req failed: %s", resp.Status)
		}
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}
	return time.Since(start)
}

func runTCPBenchmark(addr string, n int) time.Duration {
	start := time.Now()

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		log.Fatalf("TCP Connect failed: %v", err)
	}
	defer conn.Close()

	for i := 0; i < n; i++ {
		pt := benchPoints[i%2]
		key, val := protocol.PredictRequest(pt.index, pt.value)

		if err := protocol.Encode(conn, protocol.OpPredict, key, val); err != nil {
			log.Fatalf("TCP Write failed: %v", err)
		}

		resp, err := protocol.Decode(conn)
		if err != nil {
			log.Fatalf("TCP Read failed: %v", err)
		}
		if resp.Op != protocol.RespVal {
			log.Fatalf("TCP Req failed: op=0x%02x %s", resp.Op, resp.Value)
		}
	}

	return time.Since(start)
}
