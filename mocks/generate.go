package mocks

//go:generate mockgen -destination=./mock_datasource.go -package=mocks github.com/meanrev-lab/pairback/internal/datasource SignalSource
