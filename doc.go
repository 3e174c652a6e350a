// Package pms7003 reads particulate matter measurements from a Plantower
// PMS7003 air-quality sensor attached to a serial line.
//
// The sensor streams 32-byte frames at 9600 baud: a two byte start sequence
// (0x42 0x4D), a big-endian length that must be 28, twelve big-endian data
// words, two reserved bytes and a checksum that is the plain sum of every
// preceding byte. Decoder synchronises on the start sequence and rejects any
// frame with a bad length or checksum, so a Measurement is never partially
// populated.
//
// Features:
//   - Raw syscall-based serial Port on Linux with read timeouts via poll
//   - Channel interface so any duplex byte stream can carry frames
//   - Single-shot reads with Sensor.ReadMeasurement
//   - Background acquisition with Worker, bounded by a failure threshold
//   - Prometheus metrics for the acquisition loop
//
// This package does **not** support Windows.
//
// Example usage:
//
//	sensor, err := pms7003.Open(pms7003.Config{Device: "/dev/ttyAMA0"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	w := pms7003.NewWorker(sensor, pms7003.WorkerConfig{MaxFailures: 3})
//	if err := w.Start(); err != nil {
//	    log.Fatal(err)
//	}
//	defer w.Stop()
//
//	ticker := time.NewTicker(10 * time.Second)
//	defer ticker.Stop()
//	for {
//	    select {
//	    case <-ticker.C:
//	        for _, m := range w.Measurements() {
//	            fmt.Println(m)
//	        }
//	    case <-w.Done():
//	        log.Println("worker exited:", w.Err())
//	        return
//	    }
//	}
package pms7003
