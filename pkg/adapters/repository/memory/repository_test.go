package memory

import (
	"testing"

	"github.com/wadjakorntonsri/tinyread/pkg/adapters/repository/storetest"
	"github.com/wadjakorntonsri/tinyread/pkg/ports"
)

func TestRepository(t *testing.T) {
	storetest.Run(t, func(t *testing.T) ports.Repository {
		return NewRepository()
	})
}
