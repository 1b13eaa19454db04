package engine

import "github.com/signalsfoundry/adaptive-network-simulator/model"

// optimizations builds a model's parameter set: the four per-metric
// optimization levels read by core.Transform plus the model's tuning extras.
func optimizations(lat, bw, pl, jit float64, extra map[string]float64) map[string]float64 {
	p := map[string]float64{
		model.ParamLatencyOptimization:    lat,
		model.ParamBandwidthOptimization:  bw,
		model.ParamPacketLossOptimization: pl,
		model.ParamJitterOptimization:     jit,
	}
	for k, v := range extra {
		p[k] = v
	}
	return p
}

// DefaultModels returns the built-in physics models in registration order.
func DefaultModels() []model.PhysicsModel {
	return []model.PhysicsModel{
		{
			Name:        "low_latency",
			Description: "Minimises round-trip time and jitter for interactive traffic",
			Family:      model.FamilyLowLatency,
			Parameters: optimizations(0.9, 0.3, 0.5, 0.7, map[string]float64{
				"phase_vector_precaching":  0.9,
				"observer_synchronization": 0.8,
				"echo_optimization":        0.7,
				"routing_optimization":     0.85,
			}),
			ConditionWeights: map[string]float64{
				model.ConditionLatency:    1.0,
				model.ConditionJitter:     0.8,
				model.ConditionPacketLoss: 0.5,
			},
		},
		{
			Name:        "high_bandwidth",
			Description: "Maximises throughput for bulk transfers",
			Family:      model.FamilyHighBandwidth,
			Parameters: optimizations(0.2, 0.9, 0.4, 0.2, map[string]float64{
				"parallel_transfer":  0.9,
				"compression_level":  0.4,
				"chunk_optimization": 0.8,
				"buffer_size":        0.95,
			}),
			ConditionWeights: map[string]float64{
				model.ConditionBandwidth: 1.0,
				model.ConditionLatency:   0.3,
				model.FlagLowBandwidth:   0.8,
			},
		},
		{
			Name:        "reliability",
			Description: "Prioritises delivery on lossy links",
			Family:      model.FamilyReliability,
			Parameters: optimizations(0.5, 0.4, 0.9, 0.6, map[string]float64{
				"redundancy_level":    0.8,
				"error_correction":    0.9,
				"packet_verification": 0.7,
				"retry_optimization":  0.6,
			}),
			ConditionWeights: map[string]float64{
				model.ConditionPacketLoss: 1.0,
				model.ConditionJitter:     0.7,
				model.ConditionLatency:    0.4,
				model.FlagHighPacketLoss:  0.8,
			},
		},
		{
			Name:        "balanced",
			Description: "General-purpose trade-off across all metrics",
			Family:      model.FamilyBalanced,
			Parameters:  optimizations(0.3, 0.3, 0.3, 0.3, nil),
			ConditionWeights: map[string]float64{
				model.ConditionLatency:    0.5,
				model.ConditionBandwidth:  0.5,
				model.ConditionPacketLoss: 0.5,
				model.ConditionJitter:     0.5,
			},
		},
		{
			Name:        "mobile",
			Description: "Tolerates handovers and rapidly changing wireless links",
			Family:      model.FamilyMobile,
			Parameters: optimizations(0.6, 0.3, 0.4, 0.9, map[string]float64{
				"time_weighted_phase_stabilization": 1.0,
				"handover_optimization":             0.9,
				"variable_route_selection":          0.7,
				"power_conservation":                0.5,
			}),
			ConditionWeights: map[string]float64{
				model.ConditionLatency:    0.6,
				model.ConditionJitter:     1.0,
				model.ConditionBandwidth:  0.5,
				model.ConditionPacketLoss: 0.7,
				model.FlagHandover:        1.0,
			},
		},
		{
			Name:        "satellite",
			Description: "Long-delay links with large bandwidth-delay products",
			Family:      model.FamilySatellite,
			Parameters: optimizations(0.8, 0.2, 0.6, 0.4, map[string]float64{
				"adaptive_silence":     1.0,
				"predictive_routing":   0.9,
				"path_diversity":       0.7,
				"temporal_compression": 0.6,
			}),
			ConditionWeights: map[string]float64{
				model.ConditionLatency:    1.0,
				model.ConditionJitter:     0.5,
				model.ConditionPacketLoss: 0.8,
				model.FlagHighLatency:     1.0,
			},
		},
		{
			Name:        "asymmetric",
			Description: "Links whose upstream and downstream capacities differ",
			Family:      model.FamilyAsymmetric,
			Parameters: optimizations(0.5, 0.7, 0.8, 0.6, map[string]float64{
				model.ParamDirectionalBias:  1.0,
				model.ParamAsymmetricBuffer: 0.9,
				"downlink_optimization":     0.8,
				"uplink_optimization":       0.7,
				"adaptive_queue_management": 0.85,
				model.ParamThermalEchoBoost: 0.95,
			}),
			ConditionWeights: map[string]float64{
				model.ConditionLatency:    0.7,
				model.ConditionBandwidth:  0.6,
				model.ConditionPacketLoss: 1.0,
				model.ConditionJitter:     0.8,
				model.FlagAsymmetric:      1.0,
			},
		},
	}
}
