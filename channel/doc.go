// Package channel provides an unbounded, closable multi-producer
// single-consumer message conduit.
//
// New returns one Sender and one Receiver. Senders are reference counted:
// Clone adds a producer, Close drops one, and when the last producer is
// dropped the receiver observes end of stream after draining whatever is
// still queued. Sends never block. Messages from one Sender are received in
// the order they were sent; no message is delivered twice.
//
//	tx, rx := channel.New[string]()
//	tx2 := tx.Clone()
//	go func() { defer tx.Close(); tx.Send("hi") }()
//	go func() { defer tx2.Close(); tx2.Send("more") }()
//	for msg := range rx.All() {
//		fmt.Println(msg)
//	}
package channel
