package bus

import (
	eventsdb "github.com/bitrent/bitrent-ico/eventsdb"
)

type Bus struct {
	funds   Funds
	token   Token
	checker Checker
	events  eventsdb.IEventsDB
}

func NewBus() *Bus {
	return &Bus{}
}

func (b *Bus) SetFunds(funds Funds) {
	b.funds = funds
}

func (b *Bus) Funds() Funds {
	return b.funds
}

func (b *Bus) SetToken(token Token) {
	b.token = token
}

func (b *Bus) Token() Token {
	return b.token
}

func (b *Bus) SetChecker(checker Checker) {
	b.checker = checker
}

func (b *Bus) Checker() Checker {
	return b.checker
}

func (b *Bus) SetEvents(events eventsdb.IEventsDB) {
	b.events = events
}

func (b *Bus) Events() eventsdb.IEventsDB {
	return b.events
}
