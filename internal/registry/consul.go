package registry

import (
	"fmt"
	"net"
	"strconv"

	"github.com/hashicorp/consul/api"
	"github.com/rs/zerolog"
)

// Registration is a live Consul service registration.
type Registration struct {
	client    *api.Client
	serviceID string
	logger    *zerolog.Logger
}

// Register announces the HTTP service to Consul with a /ping health check.
// httpAddr is the listen address ("host:port" or ":port"); advertiseHost is
// the address other agents should reach us on.
func Register(consulAddr, serviceName, advertiseHost, httpAddr string, logger *zerolog.Logger) (*Registration, error) {
	client, err := api.NewClient(&api.Config{Address: consulAddr})
	if err != nil {
		return nil, fmt.Errorf("failed to create consul client: %w", err)
	}

	_, portStr, err := net.SplitHostPort(httpAddr)
	if err != nil {
		return nil, fmt.Errorf("invalid http address %q: %w", httpAddr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid http port %q: %w", portStr, err)
	}

	serviceID := fmt.Sprintf("%s-%s-%d", serviceName, advertiseHost, port)
	registration := &api.AgentServiceRegistration{
		ID:      serviceID,
		Name:    serviceName,
		Address: advertiseHost,
		Port:    port,
		Check: &api.AgentServiceCheck{
			HTTP:                           fmt.Sprintf("http://%s:%d/ping", advertiseHost, port),
			Interval:                       "10s",
			Timeout:                        "2s",
			DeregisterCriticalServiceAfter: "1m",
		},
	}

	if err := client.Agent().ServiceRegister(registration); err != nil {
		return nil, fmt.Errorf("failed to register service: %w", err)
	}

	logger.Info().Str("service_id", serviceID).Msg("registered with consul")

	return &Registration{client: client, serviceID: serviceID, logger: logger}, nil
}

// Deregister removes the service from Consul. Called on shutdown.
func (r *Registration) Deregister() {
	if err := r.client.Agent().ServiceDeregister(r.serviceID); err != nil {
		r.logger.Error().Err(err).Msg("failed to deregister service")
		return
	}

	r.logger.Info().Str("service_id", r.serviceID).Msg("deregistered from consul")
}
