package glints

const locationFields = `location {
      id
      name
      formattedName
      level
      administrativeLevelName
      parents {
        id
        name
        formattedName
        level
        administrativeLevelName
      }
    }`

const jobFields = `id
    title
    status
    type
    workArrangementOption
    educationLevel
    minYearsOfExperience
    maxYearsOfExperience
    company {
      id
      name
      industry {
        id
        name
      }
    }
    ` + locationFields + `
    hierarchicalJobCategory {
      level
      name
    }
    skills {
      mustHave
      skill {
        id
        name
      }
    }
    salaries {
      salaryType
      salaryMode
      minAmount
      maxAmount
      CurrencyCode
    }
    traceInfo`

const searchQuery = `query searchJobsV3($data: JobSearchConditionInput!) {
  searchJobsV3(data: $data) {
    jobsInPage {
    ` + jobFields + `
    }
    hasMore
  }
}`

const detailQuery = `query getJobDetailsById($opportunityId: String!, $traceInfo: String, $source: String) {
  getJobById(id: $opportunityId, traceInfo: $traceInfo, source: $source) {
    ` + jobFields + `
    gender
    descriptionJsonString
  }
}`
