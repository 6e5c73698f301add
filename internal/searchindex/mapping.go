package searchindex

// IndexAlias is the stable name callers and the query path search
// against; EnsureIndex creates a new versioned index and atomically
// points the alias at it so a reindex can swap versions without
// downtime.
const IndexAlias = "cv-search"

// EmbeddingDimensions must match core.EmbeddingDimensions.
const EmbeddingDimensions = 1024

// indexSettings carries the Greek-aware analyzer and the k-NN mapping:
// a custom char_filter stripping Greek accents/dialytika, Greek
// stemmer/stopwords, and the two k-NN-enabling index settings.
const indexSettingsJSON = `{
  "settings": {
    "index": {
      "number_of_shards": 1,
      "number_of_replicas": 1,
      "knn": true,
      "knn.algo_param.ef_search": 512
    },
    "analysis": {
      "char_filter": {
        "greek_char_filter": {
          "type": "mapping",
          "mappings": [
            "ά => α", "έ => ε", "ή => η", "ί => ι",
            "ό => ο", "ύ => υ", "ώ => ω",
            "Ά => Α", "Έ => Ε", "Ή => Η", "Ί => Ι",
            "Ό => Ο", "Ύ => Υ", "Ώ => Ω",
            "ϊ => ι", "ϋ => υ", "ΐ => ι", "ΰ => υ"
          ]
        }
      },
      "filter": {
        "greek_lowercase": {"type": "lowercase", "language": "greek"},
        "greek_stop": {"type": "stop", "stopwords": "_greek_"},
        "greek_stemmer": {"type": "stemmer", "language": "greek"}
      },
      "analyzer": {
        "greek_analyzer": {
          "type": "custom",
          "char_filter": ["greek_char_filter"],
          "tokenizer": "standard",
          "filter": ["greek_lowercase", "greek_stop", "greek_stemmer"]
        },
        "greek_search_analyzer": {
          "type": "custom",
          "char_filter": ["greek_char_filter"],
          "tokenizer": "standard",
          "filter": ["greek_lowercase"]
        }
      }
    }
  },
  "mappings": {
    "properties": {
      "candidate_id": {"type": "keyword"},
      "full_name": {"type": "text", "analyzer": "greek_analyzer"},
      "location": {"type": "keyword"},
      "cv_text": {"type": "text", "analyzer": "greek_analyzer"},
      "skill_names": {"type": "text", "analyzer": "greek_analyzer"},
      "skill_taxonomy_ids": {"type": "keyword"},
      "certifications": {"type": "keyword"},
      "training": {"type": "keyword"},
      "driving_licenses": {"type": "keyword"},
      "languages": {
        "type": "nested",
        "properties": {
          "name": {"type": "keyword"},
          "level": {"type": "keyword"}
        }
      },
      "experience": {
        "type": "nested",
        "properties": {
          "title": {"type": "text", "analyzer": "greek_analyzer"},
          "company": {"type": "text", "analyzer": "greek_analyzer"},
          "duration_months": {"type": "integer"}
        }
      },
      "education": {
        "type": "nested",
        "properties": {
          "institution": {"type": "text", "analyzer": "greek_analyzer"},
          "degree": {"type": "text", "analyzer": "greek_analyzer"}
        }
      },
      "embedding": {
        "type": "knn_vector",
        "dimension": 1024,
        "method": {
          "name": "hnsw",
          "space_type": "cosinesimil",
          "engine": "nmslib",
          "parameters": {"ef_construction": 512, "m": 16}
        }
      }
    }
  }
}`
