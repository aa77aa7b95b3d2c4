package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/quincequic/quince"
	"github.com/quincequic/quince/transport"
)

func serverCommand(args []string) error {
	cmd := flag.NewFlagSet("server", flag.ExitOnError)
	listenAddr := cmd.String("listen", "0.0.0.0:4433", "listen on the given IP:port")
	logLevel := cmd.Int("v", 2, "log verbose: 0=off 1=error 2=info 3=debug 4=trace")
	configPath := cmd.String("config", "", "path to a YAML config file (must set cert_file/key_file)")
	cmd.Parse(args)

	config, err := newConfig(*configPath)
	if err != nil {
		return err
	}
	if len(config.TLS.Certificates) == 0 {
		fmt.Fprintln(cmd.Output(), "quince server: -config must point to a file with cert_file/key_file")
		return nil
	}
	handler := &serverHandler{}
	server := quic.NewServer(config)
	server.SetHandler(handler)
	server.SetLogger(*logLevel, os.Stdout)
	if err := server.ListenAndServe(*listenAddr); err != nil {
		return err
	}
	log.Printf("quince server listening on %s", *listenAddr)
	select {}
}

type serverHandler struct{}

func (s *serverHandler) Serve(c quic.Conn, events []quic.Event) {
	for _, e := range events {
		switch e.Kind {
		case quic.EventConnAccept:
			log.Printf("%s connection accepted", c.RemoteAddr())
		case quic.EventConnClose:
			log.Printf("%s connection closed", c.RemoteAddr())
		case quic.EventTransport:
			s.serveTransportEvent(c, e.Transport)
		}
	}
}

func (s *serverHandler) serveTransportEvent(c quic.Conn, e transport.Event) {
	if e.Type != transport.EventStreamReadable {
		return
	}
	st := c.Stream(e.StreamID)
	if st == nil {
		return
	}
	buf := make([]byte, 4096)
	n, _ := st.Read(buf)
	if n > 0 {
		_, _ = st.Write(buf[:n])
		_ = st.Close()
	}
}
