// Package factory builds pluggable modules (simulator backends, metrics
// sinks, run stores) from configuration. A module is described by a type
// name and a raw settings map; the registered factory decodes the settings
// into its own typed struct.
//
//	reg := factory.NewRegistry[simulation.Simulator]()
//	_ = reg.Register("plant", func(conf map[string]any) (simulation.Simulator, error) {
//	    var c plant.Config
//	    if err := factory.Decode(conf, &c); err != nil {
//	        return nil, err
//	    }
//	    return plant.New(c)
//	})
//	sim, err := reg.Create(factory.ModuleConfig{Type: "plant"})
package factory
