package router

// Sink is a routing destination capable of receiving one channel's share.
// The four channels are adapters over differently-owned ledger accounts;
// tests substitute their own.
type Sink interface {
	// ReceiveAccount returns the ledger account credited when this sink
	// receives a share.
	ReceiveAccount() string
}

// AccountSink adapts a plain ledger account into a Sink.
type AccountSink string

// ReceiveAccount returns the wrapped account.
func (s AccountSink) ReceiveAccount() string { return string(s) }
