package config

// HTTPConfig configures the API listener and the optional Prometheus endpoint.
type HTTPConfig struct {
	Address string `json:"address"`
	// PrometheusAddress serves /metrics on its own listener when set.
	PrometheusAddress string `json:"prometheus_address"`
	// Token enables bearer authentication on the API when set.
	Token string `json:"token"`
}

// SetDefaults applies the default listen address.
func (c *HTTPConfig) SetDefaults() {
	if c.Address == "" {
		c.Address = ":8080"
	}
}
