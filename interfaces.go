package genaivalidator

import (
	"github.com/datar-psa/genaivalidator/api"
)

type LLMGenerator = api.LLMGenerator
type Embedder = api.Embedder
type ModerationProvider = api.ModerationProvider
type ModerationCategory = api.ModerationCategory
type ModerationResult = api.ModerationResult

type ModelProvider = api.ModelProvider
type Record = api.Record
type DevelopmentExample = api.DevelopmentExample
type TestDataItem = api.TestDataItem
type MetricScores = api.MetricScores
type ComparisonEntry = api.ComparisonEntry
type ModelSpec = api.ModelSpec
type BenchmarkInfo = api.BenchmarkInfo
type ValidationResult = api.ValidationResult
type AWSCredentials = api.AWSCredentials
type AzureCredentials = api.AzureCredentials

var ModerationCategories = api.ModerationCategories
