package datastructure

// Route hasil local search antar dua candidate.
type Route struct {
	Distance float64 `json:"distance"`
	Feasible bool    `json:"feasible"`
	// Nodes node-node non-emitting yang dilewati, urut dari candidate asal.
	Nodes []NodeID `json:"nodes"`
	// Edges edge yang dilewati, diawali edge candidate asal dan diakhiri edge candidate tujuan.
	Edges []EdgeID `json:"edges"`
}

func InfeasibleRoute() Route {
	return Route{Feasible: false}
}
