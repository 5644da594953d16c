// Package services defines the business logic for shared outputs and votes.
// This file declares the Prometheus collectors updated by the services.
package services

import "github.com/prometheus/client_golang/prometheus"

// Ingestion channels, used as the "channel" label.
const (
	ChannelHTTP = "http"
	ChannelTCP  = "tcp"
)

// Vote outcomes, used as the "result" label.
const (
	voteAccepted  = "accepted"
	voteDuplicate = "duplicate"
	voteNotFound  = "not_found"
	voteError     = "error"
)

var (
	// sharesCreated counts stored outputs by ingestion channel.
	sharesCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fetchbin_shares_created_total",
			Help: "Total number of outputs stored, by ingestion channel.",
		},
		[]string{"channel"},
	)

	// votesCast counts vote attempts by direction and outcome.
	votesCast = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fetchbin_votes_total",
			Help: "Total number of vote attempts, by direction and result.",
		},
		[]string{"direction", "result"},
	)
)

func init() {
	prometheus.MustRegister(sharesCreated, votesCast)
}
