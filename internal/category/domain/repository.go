package domain

import "github.com/smallbiznis/donare/pkg/repository"

type Repository = repository.Repository[Category]
