package coordinates

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"

	"github.com/adrianmo/go-nmea"
	"github.com/tarm/serial"
)

var errNoFix = errors.New("no valid GPS fix found")

// GPSLocator reads NMEA sentences from a GPS receiver on a serial port.
type GPSLocator struct {
	port     string
	baudRate int
}

// NewGPSLocator creates a GPSLocator for the given port and baud rate.
func NewGPSLocator(port string, baudRate int) *GPSLocator {
	return &GPSLocator{
		port:     port,
		baudRate: baudRate,
	}
}

func (g *GPSLocator) Name() string {
	return "gps"
}

// Locate opens the port and returns the first GGA fix it reads.
func (g *GPSLocator) Locate(ctx context.Context) (Coordinates, error) {
	c := &serial.Config{
		Name:        g.port,
		Baud:        g.baudRate,
		ReadTimeout: timeoutFrom(ctx, LocateTimeout),
	}
	s, err := serial.OpenPort(c)
	if err != nil {
		return Coordinates{}, err
	}
	defer s.Close()

	type result struct {
		coords Coordinates
		err    error
	}
	done := make(chan result, 1)
	go func() {
		coords, err := readFix(s)
		done <- result{coords, err}
	}()

	select {
	case <-ctx.Done():
		return Coordinates{}, ctx.Err()
	case r := <-done:
		return r.coords, r.err
	}
}

// readFix scans r for a GGA sentence carrying a valid fix.
func readFix(r io.Reader) (Coordinates, error) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "$GPGGA") && !strings.HasPrefix(line, "$GNGGA") {
			continue
		}

		sentence, err := nmea.Parse(line)
		if err != nil {
			continue
		}

		gga, ok := sentence.(nmea.GGA)
		if !ok || gga.FixQuality == nmea.Invalid {
			continue
		}

		return Coordinates{Lat: gga.Latitude, Lon: gga.Longitude}, nil
	}

	if err := scanner.Err(); err != nil {
		return Coordinates{}, err
	}
	return Coordinates{}, errNoFix
}
